package caption

import (
	"math"
	"strconv"
	"strings"
)

// opaque caption identifier, unique for the lifetime of a Store
type ID string

// text annotation bound to the closed interval [StartTime, EndTime], in seconds
type Caption struct {
	ID        ID      `json:"id"`
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// reports whether t falls inside the caption's interval, bounds included
func (c Caption) Contains(t float64) bool {
	return c.StartTime <= t && t <= c.EndTime
}

func (c Caption) Duration() float64 {
	return c.EndTime - c.StartTime
}

// parses a user-supplied time field as a finite number of seconds
func ParseSeconds(field, value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: field, Value: value, Err: ErrInvalidTime}
	}
	return v, nil
}

func validate(text string, start, end float64) error {
	if text == "" {
		return &ValidationError{Field: "text", Err: ErrEmptyText}
	}
	if math.IsNaN(start) || math.IsInf(start, 0) {
		return &ValidationError{
			Field: "startTime",
			Value: strconv.FormatFloat(start, 'f', -1, 64),
			Err:   ErrInvalidTime,
		}
	}
	if math.IsNaN(end) || math.IsInf(end, 0) {
		return &ValidationError{
			Field: "endTime",
			Value: strconv.FormatFloat(end, 'f', -1, 64),
			Err:   ErrInvalidTime,
		}
	}
	if start < 0 {
		return &ValidationError{
			Field: "startTime",
			Value: strconv.FormatFloat(start, 'f', -1, 64),
			Err:   ErrNegativeTime,
		}
	}
	if start >= end {
		return &ValidationError{
			Field: "endTime",
			Value: strconv.FormatFloat(end, 'f', -1, 64),
			Err:   ErrTimeOrder,
		}
	}
	return nil
}

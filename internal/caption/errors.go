package caption

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyText    = errors.New("caption text is empty")
	ErrInvalidTime  = errors.New("time is not a finite number")
	ErrNegativeTime = errors.New("start time must not be negative")
	ErrTimeOrder    = errors.New("start time must be less than end time")
	ErrNotFound     = errors.New("caption not found")
)

// rejected mutation input; the store is left unchanged
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// mutation referenced an id the store does not hold
type NotFoundError struct {
	ID ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("caption %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

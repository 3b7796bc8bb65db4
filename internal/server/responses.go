package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mgpai22/cuesync/internal/caption"
	"github.com/mgpai22/cuesync/internal/playback"
	"github.com/mgpai22/cuesync/internal/session"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteErr maps a session error to its HTTP status.
func WriteErr(w http.ResponseWriter, err error) {
	WriteJSON(w, statusFor(err), ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var verr *caption.ValidationError
	var terr *playback.TransportError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, caption.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrTransportBusy),
		errors.Is(err, playback.ErrNoSource),
		errors.Is(err, session.ErrNoMedia),
		errors.As(err, &terr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads and decodes a JSON request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// timeField accepts a time in seconds as either a JSON number or a string, so
// form values can be posted unchanged. Validation is left to the store.
type timeField string

func (t *timeField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = timeField(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("time must be a number or string: %w", err)
	}
	*t = timeField(n)
	return nil
}

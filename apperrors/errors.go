package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is an application error carrying the HTTP status it should
// map to at the controller boundary.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NewValidation marks a malformed or incomplete event payload.
func NewValidation(message string, err error) *Error {
	return New(http.StatusBadRequest, message, err)
}

// ProcessingError wraps a handler failure with the event identity so
// the provider's redelivery can be correlated with our logs.
type ProcessingError struct {
	EventID   string
	EventType string
	Err       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing %s (%s): %v", e.EventType, e.EventID, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

func NewProcessing(eventID, eventType string, err error) *ProcessingError {
	return &ProcessingError{EventID: eventID, EventType: eventType, Err: err}
}

// StatusForProcessing maps a dispatch failure to an HTTP status:
// explicit application errors keep their code, anything that reads
// like a validation problem is the caller's fault, the rest asks the
// provider to redeliver.
func StatusForProcessing(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "validation") || strings.Contains(msg, "invalid") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

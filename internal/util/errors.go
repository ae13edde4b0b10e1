package util

import (
	"fmt"
	"strings"
)

// FieldError carries per-field validation detail for UI display.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed question/test/answer input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// EligibilityError reports that a student may not start or re-take a test:
// attempt limit reached, outside the test window, or an attempt still open.
type EligibilityError struct {
	Reason string
}

func (e *EligibilityError) Error() string {
	return e.Reason
}

// InvalidStateError reports an operation attempted against a session or
// result in the wrong state.
type InvalidStateError struct {
	Op    string
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s in state %q", e.Op, e.State)
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// SessionExpiredError reports an interaction attempted past the session
// deadline. The session is transitioned to expired as a side effect, so the
// client should show "time's up" and redirect to results once available.
type SessionExpiredError struct {
	SessionID uint
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session %d has expired", e.SessionID)
}

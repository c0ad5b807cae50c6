// Package common defines shared constants and sentinel errors used across
// TaskDeck layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Repository-level errors. ErrorNotFound also covers resources owned by
	// another user, so existence never leaks across owners.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrorConflict = errors.New("conflict")

	// Auth errors.
	ErrorUnauthenticated    = errors.New("unauthenticated")
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorForgeryCheckFailed = errors.New("anti-forgery check failed")

	// Input errors. Match with errors.Is; the concrete value usually is a
	// *ValidationError carrying field detail.
	ErrorValidation = errors.New("validation error")
)

// ValidationError carries per-field validation messages. It matches
// ErrorValidation via errors.Is so transport code can map it without
// knowing the concrete type.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends a message for the given field and returns the receiver,
// so checks can be chained.
func (e *ValidationError) Add(field, msg string) *ValidationError {
	e.Fields[field] = append(e.Fields[field], msg)
	return e
}

// Empty reports whether no field has accumulated a message.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	if e.Empty() {
		return ErrorValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	return "validation error: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrorValidation
}

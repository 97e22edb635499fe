package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Only ErrInvalidInput, ErrPersistence
// and ErrNotFound cross the service boundary; remote failures are recovered
// where they happen.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrPersistence       = errors.New("persistence failure")
	ErrNotFound          = errors.New("not found")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

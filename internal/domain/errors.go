package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnauthorized is returned when a request lacks a valid identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when an identity attempts to access a
	// resource it does not own.
	ErrForbidden = errors.New("resource does not belong to user")

	// ErrJobNotSuccessful is returned when an operation requires a job in
	// the success state (e.g. saving) and the job is not there yet.
	ErrJobNotSuccessful = errors.New("job has not completed successfully")
)

// ValidationError carries the field that failed validation alongside the
// underlying sentinel error.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

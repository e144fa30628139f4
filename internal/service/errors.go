package service

import (
	"errors"
	"fmt"

	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/store"
)

// Common sentinel errors for the service layer
var (
	// ErrJobNotFound indicates that the job does not exist
	ErrJobNotFound = errors.New("job not found")

	// ErrArtifactNotFound indicates that the job has no artifact yet
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrNotJobOwner indicates the caller does not own the job
	ErrNotJobOwner = errors.New("job belongs to another user")

	// ErrJobNotSuccessful indicates an operation that requires a
	// successful job was attempted on a job in another status
	ErrJobNotSuccessful = errors.New("job has not completed successfully")

	// ErrFeedbackExists indicates the user already left feedback on the artifact
	ErrFeedbackExists = errors.New("feedback already submitted")
)

// JobServiceError wraps errors from the job service with context.
type JobServiceError struct {
	// Operation is the operation that failed (e.g., "create_job", "save_job")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for JobServiceError.
func (e *JobServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("job service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *JobServiceError) Unwrap() error {
	return e.Err
}

// NewJobServiceError creates a new JobServiceError. Known sentinel errors
// from the store and domain layers are mapped to service-level sentinels
// and returned directly without wrapping.
func NewJobServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrJobNotFound),
		errors.Is(err, ErrArtifactNotFound),
		errors.Is(err, ErrNotJobOwner),
		errors.Is(err, ErrJobNotSuccessful),
		errors.Is(err, ErrFeedbackExists):
		return err
	case errors.Is(err, store.ErrJobNotFound):
		return ErrJobNotFound
	case errors.Is(err, store.ErrArtifactNotFound):
		return ErrArtifactNotFound
	case errors.Is(err, store.ErrFeedbackExists):
		return ErrFeedbackExists
	case errors.Is(err, domain.ErrForbidden):
		return ErrNotJobOwner
	case errors.Is(err, domain.ErrJobNotSuccessful):
		return ErrJobNotSuccessful
	}

	return &JobServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

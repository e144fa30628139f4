package api

import (
	"errors"
	"net/http"

	"github.com/inkwell-ai/inkwell-api/internal/api/shared"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/service"
	"github.com/inkwell-ai/inkwell-api/internal/service/auth"
	"github.com/inkwell-ai/inkwell-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotJobOwner),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrArtifactNotFound),
		errors.Is(err, store.ErrJobNotFound),
		errors.Is(err, store.ErrArtifactNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, service.ErrFeedbackExists),
		errors.Is(err, store.ErrFeedbackExists),
		errors.Is(err, service.ErrJobNotSuccessful),
		errors.Is(err, domain.ErrJobNotSuccessful):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"

	case errors.Is(err, service.ErrNotJobOwner),
		errors.Is(err, domain.ErrForbidden):
		return "You do not own this job"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, store.ErrJobNotFound):
		return "Job not found"

	case errors.Is(err, service.ErrArtifactNotFound),
		errors.Is(err, store.ErrArtifactNotFound):
		return "Artifact not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, service.ErrFeedbackExists),
		errors.Is(err, store.ErrFeedbackExists):
		return "Feedback already submitted"

	case errors.Is(err, service.ErrJobNotSuccessful),
		errors.Is(err, domain.ErrJobNotSuccessful):
		return "Job has not completed successfully"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid request data"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid identifier"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps an error to a status code and safe message, then
// writes the response and logs the underlying error. An explicit message
// overrides the derived safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

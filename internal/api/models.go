package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token
// refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest defines the payload for the logout endpoint.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutResponse confirms a logout.
type LogoutResponse struct {
	Message string `json:"message"`
}

// VerifyResponse reports whether the presented access token is valid and
// which user it belongs to.
type VerifyResponse struct {
	Valid  bool      `json:"valid"`
	UserID uuid.UUID `json:"user_id"`
}

// GenerateRequest defines the payload for submitting a generation job.
type GenerateRequest struct {
	Kind   string `json:"kind"   validate:"required,min=1,max=64"`
	Prompt string `json:"prompt" validate:"required,min=1,max=10000"`
}

// JobResponse is the API projection of a job.
type JobResponse struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Prompt      string    `json:"prompt"`
	Status      string    `json:"status"`
	RetryCount  int       `json:"retry_count"`
	Saved       bool      `json:"saved"`
	Title       string    `json:"title,omitempty"`
	QueueTicket string    `json:"queue_ticket,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewJobResponse builds a JobResponse from a domain job.
func NewJobResponse(job *domain.Job) JobResponse {
	return JobResponse{
		ID:          job.ID,
		Kind:        job.Kind,
		Prompt:      job.Prompt,
		Status:      string(job.Status),
		RetryCount:  job.RetryCount,
		Saved:       job.Saved,
		Title:       job.Title,
		QueueTicket: job.QueueTicket,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

// ArtifactResponse is the API projection of a generated artifact.
type ArtifactResponse struct {
	ID        uuid.UUID `json:"id"`
	JobID     uuid.UUID `json:"job_id"`
	Kind      string    `json:"kind"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// NewArtifactResponse builds an ArtifactResponse from a domain artifact.
func NewArtifactResponse(artifact *domain.Artifact) ArtifactResponse {
	return ArtifactResponse{
		ID:        artifact.ID,
		JobID:     artifact.JobID,
		Kind:      artifact.Kind,
		Prompt:    artifact.Prompt,
		Response:  artifact.Response,
		CreatedAt: artifact.CreatedAt,
	}
}

// SavedJobsResponse is the paged listing of a user's saved jobs.
type SavedJobsResponse struct {
	Jobs    []JobResponse `json:"jobs"`
	HasMore bool          `json:"has_more"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// FeedbackRequest defines the payload for rating an artifact.
type FeedbackRequest struct {
	Rating  int    `json:"rating"  validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// FeedbackResponse confirms a recorded feedback entry.
type FeedbackResponse struct {
	ID         uuid.UUID `json:"id"`
	ArtifactID uuid.UUID `json:"artifact_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

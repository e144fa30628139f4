package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Artifact-specific validation errors
var (
	ErrEmptyArtifactID       = fmt.Errorf("artifact ID cannot be empty: %w", ErrValidation)
	ErrEmptyArtifactJobID    = fmt.Errorf("artifact job ID cannot be empty: %w", ErrValidation)
	ErrEmptyArtifactUserID   = fmt.Errorf("artifact user ID cannot be empty: %w", ErrValidation)
	ErrEmptyArtifactResponse = fmt.Errorf("artifact response cannot be empty: %w", ErrValidation)
)

// Artifact represents the generated result of a successful job. Each job
// has at most one artifact; the storage layer enforces this with a unique
// constraint on JobID, which is what makes duplicate execution attempts
// safe. Artifacts are written exactly once and never mutated afterwards.
type Artifact struct {
	ID        uuid.UUID `json:"id"`
	JobID     uuid.UUID `json:"job_id"`
	UserID    uuid.UUID `json:"user_id"`
	Response  string    `json:"response"`
	Kind      string    `json:"kind"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewArtifact creates a new Artifact for the given job, echoing the job's
// kind and prompt alongside the generated response text.
// Returns an error if validation fails.
func NewArtifact(job *Job, response string) (*Artifact, error) {
	if job == nil {
		return nil, ErrEmptyArtifactJobID
	}

	now := time.Now().UTC()
	artifact := &Artifact{
		ID:        uuid.New(),
		JobID:     job.ID,
		UserID:    job.UserID,
		Response:  response,
		Kind:      job.Kind,
		Prompt:    job.Prompt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := artifact.Validate(); err != nil {
		return nil, err
	}

	return artifact, nil
}

// Validate checks if the Artifact has valid data.
// Returns an error if any field fails validation.
func (a *Artifact) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyArtifactID
	}

	if a.JobID == uuid.Nil {
		return ErrEmptyArtifactJobID
	}

	if a.UserID == uuid.Nil {
		return ErrEmptyArtifactUserID
	}

	if a.Response == "" {
		return ErrEmptyArtifactResponse
	}

	return nil
}

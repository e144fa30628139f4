package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
)

// ArtifactStore defines the interface for artifact data persistence.
// The artifact table carries a unique constraint on job_id; that constraint,
// not any lock, is what arbitrates concurrent execution attempts for the
// same job.
type ArtifactStore interface {
	// Create saves a new artifact to the store.
	// Returns ErrArtifactExists if an artifact already exists for the job;
	// callers racing on the same job treat that as success, not failure.
	Create(ctx context.Context, artifact *domain.Artifact) error

	// GetByJobID retrieves the artifact belonging to the given job.
	// Returns ErrArtifactNotFound if no artifact exists yet.
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*domain.Artifact, error)

	// WithTx returns a new ArtifactStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ArtifactStore
}

// FeedbackStore defines the interface for feedback persistence.
// It reuses the artifact uniqueness pattern: one row per (artifact, user),
// enforced by a unique constraint.
type FeedbackStore interface {
	// Create saves a new feedback entry.
	// Returns ErrFeedbackExists if the user already rated the artifact.
	Create(ctx context.Context, feedback *domain.Feedback) error

	// WithTx returns a new FeedbackStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) FeedbackStore
}

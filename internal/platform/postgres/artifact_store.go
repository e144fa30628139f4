package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/platform/logger"
	"github.com/inkwell-ai/inkwell-api/internal/store"
)

// PostgresArtifactStore implements the store.ArtifactStore interface
// using a PostgreSQL database as the storage backend. The artifacts table
// carries a unique constraint on job_id; that constraint is the arbiter
// between execution engines racing on the same job.
type PostgresArtifactStore struct {
	db store.DBTX
}

// NewPostgresArtifactStore creates a new PostgreSQL implementation of the
// ArtifactStore interface.
func NewPostgresArtifactStore(db store.DBTX) *PostgresArtifactStore {
	return &PostgresArtifactStore{
		db: db,
	}
}

// Ensure PostgresArtifactStore implements store.ArtifactStore interface
var _ store.ArtifactStore = (*PostgresArtifactStore)(nil)

// WithTx implements store.ArtifactStore.WithTx
func (s *PostgresArtifactStore) WithTx(tx *sql.Tx) store.ArtifactStore {
	return &PostgresArtifactStore{
		db: tx,
	}
}

// Create implements store.ArtifactStore.Create
func (s *PostgresArtifactStore) Create(ctx context.Context, artifact *domain.Artifact) error {
	log := logger.FromContext(ctx)

	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO artifacts (id, job_id, user_id, kind, prompt, response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		artifact.ID,
		artifact.JobID,
		artifact.UserID,
		artifact.Kind,
		artifact.Prompt,
		artifact.Response,
		artifact.CreatedAt,
		artifact.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrArtifactExists, err)
		}
		log.Error("failed to create artifact",
			"artifact_id", artifact.ID,
			"job_id", artifact.JobID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByJobID implements store.ArtifactStore.GetByJobID
func (s *PostgresArtifactStore) GetByJobID(ctx context.Context, jobID uuid.UUID) (*domain.Artifact, error) {
	query := `
		SELECT id, job_id, user_id, kind, prompt, response, created_at, updated_at
		FROM artifacts
		WHERE job_id = $1
	`

	var artifact domain.Artifact
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&artifact.ID,
		&artifact.JobID,
		&artifact.UserID,
		&artifact.Kind,
		&artifact.Prompt,
		&artifact.Response,
		&artifact.CreatedAt,
		&artifact.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to get artifact by job ID: %w", MapError(err))
	}

	return &artifact, nil
}

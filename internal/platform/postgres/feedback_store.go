package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/platform/logger"
	"github.com/inkwell-ai/inkwell-api/internal/store"
)

// PostgresFeedbackStore implements the store.FeedbackStore interface
// using a PostgreSQL database as the storage backend.
type PostgresFeedbackStore struct {
	db store.DBTX
}

// NewPostgresFeedbackStore creates a new PostgreSQL implementation of the
// FeedbackStore interface.
func NewPostgresFeedbackStore(db store.DBTX) *PostgresFeedbackStore {
	return &PostgresFeedbackStore{
		db: db,
	}
}

// Ensure PostgresFeedbackStore implements store.FeedbackStore interface
var _ store.FeedbackStore = (*PostgresFeedbackStore)(nil)

// WithTx implements store.FeedbackStore.WithTx
func (s *PostgresFeedbackStore) WithTx(tx *sql.Tx) store.FeedbackStore {
	return &PostgresFeedbackStore{
		db: tx,
	}
}

// Create implements store.FeedbackStore.Create
func (s *PostgresFeedbackStore) Create(ctx context.Context, feedback *domain.Feedback) error {
	log := logger.FromContext(ctx)

	if err := feedback.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO feedback (id, artifact_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		feedback.ID,
		feedback.ArtifactID,
		feedback.UserID,
		feedback.Rating,
		feedback.Comment,
		feedback.CreatedAt,
		feedback.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrFeedbackExists, err)
		}
		log.Error("failed to create feedback",
			"feedback_id", feedback.ID,
			"artifact_id", feedback.ArtifactID,
			"error", err)
		return MapError(err)
	}

	return nil
}

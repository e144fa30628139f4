package postgres

import (
	"context"
	"database/sql"

	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/store"
)

// PostgresJobCompleter implements store.JobCompleter using a transaction
// over the job and artifact stores.
type PostgresJobCompleter struct {
	db        *sql.DB
	jobs      *PostgresJobStore
	artifacts *PostgresArtifactStore
}

var _ store.JobCompleter = (*PostgresJobCompleter)(nil)

// NewPostgresJobCompleter creates a completer bound to the given
// database handle.
func NewPostgresJobCompleter(db *sql.DB) *PostgresJobCompleter {
	return &PostgresJobCompleter{
		db:        db,
		jobs:      NewPostgresJobStore(db),
		artifacts: NewPostgresArtifactStore(db),
	}
}

// CompleteJob implements store.JobCompleter.CompleteJob. Both writes land
// or neither does: losing the artifact insert race or a concurrent status
// change rolls the whole completion back.
func (c *PostgresJobCompleter) CompleteJob(ctx context.Context, artifact *domain.Artifact) error {
	return store.RunInTransaction(ctx, c.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := c.artifacts.WithTx(tx).Create(ctx, artifact); err != nil {
			return err
		}
		return c.jobs.WithTx(tx).MarkSuccess(ctx, artifact.JobID)
	})
}

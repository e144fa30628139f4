package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
)

// JobStore defines the interface for job data persistence.
type JobStore interface {
	// Create saves a new job to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain Job if data is invalid.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its unique ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// FindEligible retrieves up to limit pending jobs whose creation time is
	// at or before the given cutoff, ordered by creation time ascending.
	// Returns an empty slice if no jobs are eligible.
	FindEligible(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Job, error)

	// SetQueueTicket records the intake queue ticket on a job for tracing.
	// The ticket carries no correctness weight; failures here are advisory.
	SetQueueTicket(ctx context.Context, id uuid.UUID, ticket string) error

	// MarkSuccess transitions a job to the success status. The write is
	// conditional on the job not already being failed, making it idempotent
	// under racing writers: a second success write is a no-op, not an error.
	// Returns ErrJobNotFound if the job does not exist.
	MarkSuccess(ctx context.Context, id uuid.UUID) error

	// MarkFailed transitions a pending job to the failed status.
	// Returns ErrStaleStatus if the job is no longer pending.
	MarkFailed(ctx context.Context, id uuid.UUID) error

	// ScheduleRetry increments a pending job's retry count and resets its
	// creation time to now so the execution delay window restarts. The write
	// is conditional on status=pending; returns ErrStaleStatus otherwise.
	ScheduleRetry(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// SetSaved flags a job as saved. Callers are responsible for enforcing
	// the status=success precondition before writing.
	SetSaved(ctx context.Context, id uuid.UUID) error

	// ListSaved retrieves the user's saved jobs ordered by creation time
	// descending. Returns up to limit jobs starting at offset, plus a flag
	// indicating whether more results exist past the returned page.
	ListSaved(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Job, bool, error)

	// WithTx returns a new JobStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) JobStore
}

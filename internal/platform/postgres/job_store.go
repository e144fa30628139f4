package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/platform/logger"
	"github.com/inkwell-ai/inkwell-api/internal/store"
)

// jobColumns is the column list shared by every job SELECT.
const jobColumns = `id, user_id, kind, prompt, status, retry_count, queue_ticket, saved, title, created_at, updated_at`

// PostgresJobStore implements the store.JobStore interface
// using a PostgreSQL database as the storage backend.
type PostgresJobStore struct {
	db store.DBTX
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the
// JobStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresJobStore(db store.DBTX) *PostgresJobStore {
	return &PostgresJobStore{
		db: db,
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// WithTx implements store.JobStore.WithTx
func (s *PostgresJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &PostgresJobStore{
		db: tx,
	}
}

// Create implements store.JobStore.Create
func (s *PostgresJobStore) Create(ctx context.Context, job *domain.Job) error {
	log := logger.FromContextOrDefault(ctx, nil)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO jobs (id, user_id, kind, prompt, status, retry_count, queue_ticket, saved, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.UserID,
		job.Kind,
		job.Prompt,
		job.Status,
		job.RetryCount,
		nullString(job.QueueTicket),
		job.Saved,
		job.Title,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create job",
			"job_id", job.ID,
			"user_id", job.UserID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByID implements store.JobStore.GetByID
func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job by ID: %w", MapError(err))
	}

	return job, nil
}

// FindEligible implements store.JobStore.FindEligible
func (s *PostgresJobStore) FindEligible(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, nil)

	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = $1 AND created_at <= $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, domain.JobStatusPending, cutoff.UTC(), limit)
	if err != nil {
		log.Error("failed to query eligible jobs",
			"cutoff", cutoff,
			"error", err)
		return nil, fmt.Errorf("failed to query eligible jobs: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}

	return jobs, nil
}

// SetQueueTicket implements store.JobStore.SetQueueTicket
func (s *PostgresJobStore) SetQueueTicket(ctx context.Context, id uuid.UUID, ticket string) error {
	query := `UPDATE jobs SET queue_ticket = $1, updated_at = $2 WHERE id = $3`

	result, err := s.db.ExecContext(ctx, query, ticket, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set queue ticket: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, "job"); err != nil {
		return store.ErrJobNotFound
	}

	return nil
}

// MarkSuccess implements store.JobStore.MarkSuccess. The status write is
// conditional so a job that already reached a terminal failed state is
// never flipped back; a repeated success write simply rewrites the row.
func (s *PostgresJobStore) MarkSuccess(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status != $4
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusSuccess,
		time.Now().UTC(),
		id,
		domain.JobStatusFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job success: %w", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return s.classifyMissedUpdate(ctx, id)
	}

	return nil
}

// MarkFailed implements store.JobStore.MarkFailed
func (s *PostgresJobStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusFailed,
		time.Now().UTC(),
		id,
		domain.JobStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return s.classifyMissedUpdate(ctx, id)
	}

	return nil
}

// ScheduleRetry implements store.JobStore.ScheduleRetry. Resetting
// created_at restarts the execution delay window, so a retried job waits
// the full delay again before the poller picks it up.
func (s *PostgresJobStore) ScheduleRetry(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	now := time.Now().UTC()

	query := `
		UPDATE jobs
		SET retry_count = retry_count + 1, created_at = $1, updated_at = $1
		WHERE id = $2 AND status = $3
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query, now, id, domain.JobStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyMissedUpdate(ctx, id)
		}
		return nil, fmt.Errorf("failed to schedule retry: %w", MapError(err))
	}

	return job, nil
}

// SetSaved implements store.JobStore.SetSaved
func (s *PostgresJobStore) SetSaved(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE jobs SET saved = TRUE, updated_at = $1 WHERE id = $2`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set saved flag: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, "job"); err != nil {
		return store.ErrJobNotFound
	}

	return nil
}

// ListSaved implements store.JobStore.ListSaved. It fetches one row past
// the requested limit to detect whether another page exists.
func (s *PostgresJobStore) ListSaved(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Job, bool, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE user_id = $1 AND saved = TRUE
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit+1, offset)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query saved jobs: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, false, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating job rows: %w", err)
	}

	hasMore := len(jobs) > limit
	if hasMore {
		jobs = jobs[:limit]
	}

	return jobs, hasMore, nil
}

// classifyMissedUpdate distinguishes a conditional update that matched no
// rows: either the job does not exist, or its status changed under us.
func (s *PostgresJobStore) classifyMissedUpdate(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check job existence: %w", MapError(err))
	}

	if !exists {
		return store.ErrJobNotFound
	}
	return store.ErrStaleStatus
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob scans a single job row using the jobColumns column order.
func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var queueTicket sql.NullString

	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Kind,
		&job.Prompt,
		&job.Status,
		&job.RetryCount,
		&queueTicket,
		&job.Saved,
		&job.Title,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.QueueTicket = queueTicket.String
	return &job, nil
}

// nullString converts an empty string to a NULL-able value for insertion.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

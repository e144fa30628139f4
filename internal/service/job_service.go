package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/platform/metrics"
	"github.com/inkwell-ai/inkwell-api/internal/store"
)

// Pagination bounds for saved job listings.
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// IntakeEnqueuer pushes accepted jobs to the worker wake-up queue.
type IntakeEnqueuer interface {
	// Enqueue announces a new job and returns a ticket for record keeping.
	Enqueue(ctx context.Context, jobID uuid.UUID) (string, error)
}

// JobService provides job-related operations for the API surface.
type JobService interface {
	// CreateJob accepts a generation request: it persists a pending job
	// and announces it on the intake queue.
	CreateJob(ctx context.Context, userID uuid.UUID, kind, prompt string) (*domain.Job, error)

	// GetJob retrieves a job owned by the given user.
	GetJob(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error)

	// GetArtifact retrieves the artifact of a job owned by the given user.
	GetArtifact(ctx context.Context, userID, jobID uuid.UUID) (*domain.Artifact, error)

	// SaveJob flags a successful job as saved by its owner.
	SaveJob(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error)

	// ListSaved returns a page of the user's saved jobs plus a flag
	// indicating whether more pages exist.
	ListSaved(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Job, bool, error)

	// CreateFeedback records the user's rating of a job's artifact.
	CreateFeedback(ctx context.Context, userID, jobID uuid.UUID, rating int, comment string) (*domain.Feedback, error)
}

// jobServiceImpl implements the JobService interface
type jobServiceImpl struct {
	jobStore      store.JobStore
	artifactStore store.ArtifactStore
	feedbackStore store.FeedbackStore
	intake        IntakeEnqueuer
	logger        *slog.Logger
}

// NewJobService creates a new JobService. The intake enqueuer may be nil,
// in which case jobs rely entirely on the worker's database poll.
// It returns an error if any other required dependency is nil.
func NewJobService(
	jobStore store.JobStore,
	artifactStore store.ArtifactStore,
	feedbackStore store.FeedbackStore,
	intake IntakeEnqueuer,
	logger *slog.Logger,
) (JobService, error) {
	if jobStore == nil {
		return nil, &JobServiceError{Operation: "create_service", Message: "jobStore cannot be nil"}
	}
	if artifactStore == nil {
		return nil, &JobServiceError{Operation: "create_service", Message: "artifactStore cannot be nil"}
	}
	if feedbackStore == nil {
		return nil, &JobServiceError{Operation: "create_service", Message: "feedbackStore cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &jobServiceImpl{
		jobStore:      jobStore,
		artifactStore: artifactStore,
		feedbackStore: feedbackStore,
		intake:        intake,
		logger:        logger.With("component", "job_service"),
	}, nil
}

// CreateJob persists the job first, then announces it. The database write
// is what accepts the job; the intake announcement is best-effort and a
// failure there only delays pickup until the worker's next poll.
func (s *jobServiceImpl) CreateJob(ctx context.Context, userID uuid.UUID, kind, prompt string) (*domain.Job, error) {
	job, err := domain.NewJob(userID, kind, prompt)
	if err != nil {
		return nil, NewJobServiceError("create_job", "invalid job request", err)
	}

	if err := s.jobStore.Create(ctx, job); err != nil {
		s.logger.Error("failed to persist job",
			"error", err,
			"user_id", userID)
		return nil, NewJobServiceError("create_job", "failed to save job", err)
	}

	metrics.JobSubmitted(job.Kind)

	if s.intake != nil {
		ticket, err := s.intake.Enqueue(ctx, job.ID)
		if err != nil {
			s.logger.Warn("failed to announce job on intake queue",
				"error", err,
				"job_id", job.ID)
		} else {
			job.QueueTicket = ticket
			if err := s.jobStore.SetQueueTicket(ctx, job.ID, ticket); err != nil {
				s.logger.Warn("failed to record queue ticket",
					"error", err,
					"job_id", job.ID)
			}
		}
	}

	s.logger.Info("job accepted",
		"job_id", job.ID,
		"user_id", userID,
		"kind", job.Kind)

	return job, nil
}

// GetJob retrieves the job and enforces ownership.
func (s *jobServiceImpl) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error) {
	job, err := s.ownedJob(ctx, userID, jobID)
	if err != nil {
		return nil, NewJobServiceError("get_job", "failed to retrieve job", err)
	}
	return job, nil
}

// GetArtifact retrieves the artifact of an owned job.
func (s *jobServiceImpl) GetArtifact(ctx context.Context, userID, jobID uuid.UUID) (*domain.Artifact, error) {
	if _, err := s.ownedJob(ctx, userID, jobID); err != nil {
		return nil, NewJobServiceError("get_artifact", "failed to retrieve job", err)
	}

	artifact, err := s.artifactStore.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, NewJobServiceError("get_artifact", "failed to retrieve artifact", err)
	}
	return artifact, nil
}

// SaveJob flags a successful job as saved. Saving is only valid once the
// job reached the success status.
func (s *jobServiceImpl) SaveJob(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error) {
	job, err := s.ownedJob(ctx, userID, jobID)
	if err != nil {
		return nil, NewJobServiceError("save_job", "failed to retrieve job", err)
	}

	if err := job.MarkSaved(); err != nil {
		return nil, NewJobServiceError("save_job", "job is not savable", err)
	}

	if err := s.jobStore.SetSaved(ctx, jobID); err != nil {
		s.logger.Error("failed to persist saved flag",
			"error", err,
			"job_id", jobID)
		return nil, NewJobServiceError("save_job", "failed to save job", err)
	}

	return job, nil
}

// ListSaved pages through the user's saved jobs, clamping the limit to
// sane bounds.
func (s *jobServiceImpl) ListSaved(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Job, bool, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	jobs, hasMore, err := s.jobStore.ListSaved(ctx, userID, limit, offset)
	if err != nil {
		return nil, false, NewJobServiceError("list_saved", "failed to list saved jobs", err)
	}
	return jobs, hasMore, nil
}

// CreateFeedback records a rating against the artifact of an owned job.
func (s *jobServiceImpl) CreateFeedback(ctx context.Context, userID, jobID uuid.UUID, rating int, comment string) (*domain.Feedback, error) {
	if _, err := s.ownedJob(ctx, userID, jobID); err != nil {
		return nil, NewJobServiceError("create_feedback", "failed to retrieve job", err)
	}

	artifact, err := s.artifactStore.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, NewJobServiceError("create_feedback", "failed to retrieve artifact", err)
	}

	feedback, err := domain.NewFeedback(artifact.ID, userID, rating, comment)
	if err != nil {
		return nil, NewJobServiceError("create_feedback", "invalid feedback", err)
	}

	if err := s.feedbackStore.Create(ctx, feedback); err != nil {
		return nil, NewJobServiceError("create_feedback", "failed to save feedback", err)
	}

	s.logger.Info("feedback recorded",
		"artifact_id", artifact.ID,
		"user_id", userID,
		"rating", rating)

	return feedback, nil
}

// ownedJob fetches a job and verifies the caller owns it. Ownership
// failures surface as ErrNotJobOwner so handlers can distinguish them
// from missing jobs.
func (s *jobServiceImpl) ownedJob(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error) {
	job, err := s.jobStore.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if job.UserID != userID {
		return nil, ErrNotJobOwner
	}

	return job, nil
}

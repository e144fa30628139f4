package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/events"
	"github.com/inkwell-ai/inkwell-api/internal/generation"
	"github.com/inkwell-ai/inkwell-api/internal/platform/metrics"
	"github.com/inkwell-ai/inkwell-api/internal/store"
)

// Engine executes a single generation job through to a decision: success
// with a persisted artifact, a scheduled retry, or terminal failure.
//
// The engine is safe to run concurrently against the same job from
// multiple processes. It takes no locks; the unique constraint on the
// artifact's job ID arbitrates races, and all status writes are
// conditional so a losing writer degrades to a no-op.
type Engine struct {
	logger        *slog.Logger
	jobStore      store.JobStore
	artifactStore store.ArtifactStore
	completer     store.JobCompleter
	provider      generation.Provider
	publisher     events.Publisher
	maxRetries    int
}

// NewEngine creates a new Engine. The publisher may be nil, in which case
// no events are emitted. The completer may be nil, in which case the
// artifact and the status land in separate writes and redelivery covers
// the gap between them. Returns an error if any required collaborator
// is missing.
func NewEngine(
	logger *slog.Logger,
	jobStore store.JobStore,
	artifactStore store.ArtifactStore,
	completer store.JobCompleter,
	provider generation.Provider,
	publisher events.Publisher,
	maxRetries int,
) (*Engine, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if jobStore == nil {
		return nil, errors.New("job store cannot be nil")
	}
	if artifactStore == nil {
		return nil, errors.New("artifact store cannot be nil")
	}
	if provider == nil {
		return nil, errors.New("provider cannot be nil")
	}
	if maxRetries < 0 {
		return nil, errors.New("max retries cannot be negative")
	}

	return &Engine{
		logger:        logger.With(slog.String("component", "engine")),
		jobStore:      jobStore,
		artifactStore: artifactStore,
		completer:     completer,
		provider:      provider,
		publisher:     publisher,
		maxRetries:    maxRetries,
	}, nil
}

// Process runs one execution attempt for the given job. The returned
// error reports infrastructure trouble only; a job that fails permanently
// and lands in the failed status is a handled outcome, not an error.
func (e *Engine) Process(ctx context.Context, job *domain.Job) error {
	log := e.logger.With("job_id", job.ID, "kind", job.Kind, "retry_count", job.RetryCount)

	if job.IsTerminal() {
		log.Debug("skipping job already in terminal status", "status", job.Status)
		return nil
	}

	// A previous attempt may have created the artifact and then died
	// before finishing the status write. Completing that write here is
	// what makes redelivery safe.
	existing, err := e.artifactStore.GetByJobID(ctx, job.ID)
	if err == nil {
		log.Info("artifact already exists, completing earlier attempt")
		return e.finishSuccess(ctx, job, existing)
	}
	if !errors.Is(err, store.ErrArtifactNotFound) {
		return fmt.Errorf("failed to check for existing artifact: %w", err)
	}

	start := time.Now()
	response, genErr := e.provider.Generate(ctx, job.Kind, job.Prompt)
	metrics.ObserveProviderCall(time.Since(start), genErr == nil)

	if genErr != nil {
		return e.handleFailure(ctx, job, genErr)
	}

	artifact, err := domain.NewArtifact(job, response)
	if err != nil {
		// An unusable response will not improve on retry.
		log.Error("provider returned invalid artifact content", "error", err)
		return e.finishFailed(ctx, job)
	}

	if err := e.persistArtifact(ctx, artifact); err != nil {
		switch {
		case errors.Is(err, store.ErrArtifactExists):
			// Another engine won the race. Its artifact is the one that
			// counts; ours is discarded.
			log.Info("concurrent attempt already persisted an artifact")
			winner, getErr := e.artifactStore.GetByJobID(ctx, job.ID)
			if getErr != nil {
				return fmt.Errorf("failed to load winning artifact: %w", getErr)
			}
			return e.finishSuccess(ctx, job, winner)
		case errors.Is(err, store.ErrStaleStatus):
			log.Info("job resolved concurrently, discarding artifact")
			return nil
		default:
			return fmt.Errorf("failed to persist artifact: %w", err)
		}
	}

	return e.finishSuccess(ctx, job, artifact)
}

// persistArtifact stores the artifact, folding the success status into
// the same transaction when a completer is available.
func (e *Engine) persistArtifact(ctx context.Context, artifact *domain.Artifact) error {
	if e.completer != nil {
		return e.completer.CompleteJob(ctx, artifact)
	}
	return e.artifactStore.Create(ctx, artifact)
}

// handleFailure routes a provider failure to a retry or a terminal
// failed status based on its classification and the retry budget.
func (e *Engine) handleFailure(ctx context.Context, job *domain.Job, genErr error) error {
	log := e.logger.With("job_id", job.ID, "retry_count", job.RetryCount)

	if errors.Is(genErr, generation.ErrPermanent) {
		log.Warn("permanent generation failure", "error", genErr)
		return e.finishFailed(ctx, job)
	}

	// Transient by classification or by default: unrecognized failures
	// get the benefit of the retry budget.
	if job.RetryCount >= e.maxRetries {
		log.Warn("retry budget exhausted", "error", genErr, "max_retries", e.maxRetries)
		return e.finishFailed(ctx, job)
	}

	updated, err := e.jobStore.ScheduleRetry(ctx, job.ID)
	if err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			log.Info("job resolved concurrently, skipping retry")
			return nil
		}
		return fmt.Errorf("failed to schedule retry: %w", err)
	}

	log.Info("scheduled retry after transient failure",
		"error", genErr,
		"new_retry_count", updated.RetryCount)
	metrics.JobRetried()
	metrics.JobProcessed("retried")
	e.publish(ctx, updated, nil)

	return nil
}

// finishSuccess records the success status and emits the success event.
// When the conditional write refuses because the job already reached a
// different terminal status, no event is emitted: the row's status is
// authoritative and a success announcement would contradict it.
func (e *Engine) finishSuccess(ctx context.Context, job *domain.Job, artifact *domain.Artifact) error {
	if err := e.jobStore.MarkSuccess(ctx, job.ID); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			e.logger.Info("job resolved concurrently, not announcing success",
				"job_id", job.ID)
			return nil
		}
		return fmt.Errorf("failed to mark job success: %w", err)
	}

	job.Status = domain.JobStatusSuccess
	metrics.JobProcessed("success")
	e.publish(ctx, job, artifact)
	return nil
}

// finishFailed records the failed status and emits the failure event.
func (e *Engine) finishFailed(ctx context.Context, job *domain.Job) error {
	if err := e.jobStore.MarkFailed(ctx, job.ID); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			e.logger.Info("job resolved concurrently, leaving status as is",
				"job_id", job.ID)
			return nil
		}
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	job.Status = domain.JobStatusFailed
	metrics.JobProcessed("failed")
	e.publish(ctx, job, nil)
	return nil
}

// publish emits a job update event. Publishing is best-effort: failures
// are logged and never change the processing outcome.
func (e *Engine) publish(ctx context.Context, job *domain.Job, artifact *domain.Artifact) {
	if e.publisher == nil {
		return
	}

	event := events.NewJobUpdateEvent(job, artifact)
	if err := e.publisher.PublishJobUpdate(ctx, event); err != nil {
		e.logger.Warn("failed to publish job update event",
			"job_id", job.ID,
			"status", job.Status,
			"error", err)
	}
}

package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/platform/metrics"
	"github.com/inkwell-ai/inkwell-api/internal/store"
)

// Processor executes one attempt for a job. Implemented by Engine.
type Processor interface {
	Process(ctx context.Context, job *domain.Job) error
}

// RunnerConfig holds configuration for the job runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue
	QueueSize int

	// PollInterval is the pause between database polls for eligible jobs
	PollInterval time.Duration

	// ExecutionDelay is the minimum age a pending job must reach before
	// it becomes eligible for execution
	ExecutionDelay time.Duration

	// BatchSize caps how many jobs one poll cycle may fetch
	BatchSize int
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:    2,
		QueueSize:      100,
		PollInterval:   5 * time.Second,
		ExecutionDelay: 0,
		BatchSize:      10,
	}
}

// Runner drives job processing: it polls the database for eligible
// pending jobs and feeds them to a pool of workers running the engine.
// The database is the source of truth; the wake channel only shortens
// the wait after a new job arrives.
type Runner struct {
	jobStore   store.JobStore
	processor  Processor
	jobChan    chan *domain.Job
	wakeChan   chan struct{}
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// NewRunner creates a new Runner.
func NewRunner(jobStore store.JobStore, processor Processor, config RunnerConfig, logger *slog.Logger) (*Runner, error) {
	if jobStore == nil {
		return nil, errors.New("job store cannot be nil")
	}
	if processor == nil {
		return nil, errors.New("processor cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultRunnerConfig().WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultRunnerConfig().QueueSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultRunnerConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultRunnerConfig().BatchSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		jobStore:   jobStore,
		processor:  processor,
		jobChan:    make(chan *domain.Job, config.QueueSize),
		wakeChan:   make(chan struct{}, 1),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With(slog.String("component", "runner")),
		inFlight:   make(map[uuid.UUID]struct{}),
	}, nil
}

// Start launches the worker pool and the poll loop.
func (r *Runner) Start() {
	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.pollLoop()

	r.logger.Info("runner started",
		"worker_count", r.config.WorkerCount,
		"poll_interval", r.config.PollInterval,
		"execution_delay", r.config.ExecutionDelay,
		"batch_size", r.config.BatchSize)
}

// Stop gracefully shuts down the runner, waiting for in-flight jobs.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
}

// Wake nudges the poll loop to run ahead of its next tick. Safe to call
// from any goroutine; redundant wakes coalesce.
func (r *Runner) Wake() {
	select {
	case r.wakeChan <- struct{}{}:
	default:
	}
}

// pollLoop fetches eligible jobs on every tick or wake signal.
func (r *Runner) pollLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	// Prime one poll at startup so jobs left over from a previous run
	// are picked up without waiting a full interval.
	r.poll()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.poll()
		case <-r.wakeChan:
			r.poll()
		}
	}
}

// poll runs one fetch-and-dispatch cycle.
func (r *Runner) poll() {
	cutoff := time.Now().UTC().Add(-r.config.ExecutionDelay)

	jobs, err := r.jobStore.FindEligible(r.ctx, cutoff, r.config.BatchSize)
	if err != nil {
		if r.ctx.Err() == nil {
			r.logger.Error("failed to fetch eligible jobs", "error", err)
		}
		return
	}

	metrics.ObservePollBatch(len(jobs))

	for _, job := range jobs {
		if !r.claim(job.ID) {
			continue
		}

		select {
		case r.jobChan <- job:
		case <-r.ctx.Done():
			r.release(job.ID)
			return
		default:
			// Queue full. The job stays pending and the next poll
			// retries it.
			r.release(job.ID)
			r.logger.Warn("job queue full, deferring job", "job_id", job.ID)
			return
		}
	}
}

// worker processes jobs from the queue.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case job := <-r.jobChan:
			r.processJob(job, id)
		}
	}
}

// processJob runs one job through the processor with error isolation:
// a failing job never takes the worker down or blocks its neighbors.
func (r *Runner) processJob(job *domain.Job, workerID int) {
	defer r.release(job.ID)

	log := r.logger.With(
		"job_id", job.ID,
		"kind", job.Kind,
		"worker_id", workerID,
	)

	log.Info("processing job")

	if err := r.processor.Process(r.ctx, job); err != nil {
		log.Error("job processing failed", "error", err)
		return
	}

	log.Debug("job processing finished")
}

// claim marks a job as in flight. Returns false if the job is already
// being processed by this runner, preventing duplicate dispatch when the
// wake signal and the poll tick race.
func (r *Runner) claim(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.inFlight[id]; ok {
		return false
	}
	r.inFlight[id] = struct{}{}
	return true
}

func (r *Runner) release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, id)
}

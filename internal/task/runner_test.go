package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProcessor marks each job successful and records its ID.
type recordingProcessor struct {
	jobStore *fakeJobStore

	mu  sync.Mutex
	ids []uuid.UUID
}

func (p *recordingProcessor) Process(ctx context.Context, job *domain.Job) error {
	if err := p.jobStore.MarkSuccess(ctx, job.ID); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, job.ID)
	return nil
}

func (p *recordingProcessor) processed() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]uuid.UUID, len(p.ids))
	copy(out, p.ids)
	return out
}

func TestNewRunner_Validation(t *testing.T) {
	t.Parallel()

	jobStore := newFakeJobStore()
	processor := &recordingProcessor{jobStore: jobStore}

	t.Run("nil job store", func(t *testing.T) {
		t.Parallel()
		_, err := NewRunner(nil, processor, DefaultRunnerConfig(), testLogger())
		assert.Error(t, err)
	})

	t.Run("nil processor", func(t *testing.T) {
		t.Parallel()
		_, err := NewRunner(jobStore, nil, DefaultRunnerConfig(), testLogger())
		assert.Error(t, err)
	})

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()
		_, err := NewRunner(jobStore, processor, DefaultRunnerConfig(), nil)
		assert.Error(t, err)
	})

	t.Run("zero values replaced with defaults", func(t *testing.T) {
		t.Parallel()
		runner, err := NewRunner(jobStore, processor, RunnerConfig{}, testLogger())
		require.NoError(t, err)
		assert.Equal(t, DefaultRunnerConfig().WorkerCount, runner.config.WorkerCount)
		assert.Equal(t, DefaultRunnerConfig().PollInterval, runner.config.PollInterval)
		assert.Equal(t, DefaultRunnerConfig().BatchSize, runner.config.BatchSize)
	})
}

func TestRunner_ProcessesEligibleJobs(t *testing.T) {
	t.Parallel()

	jobStore := newFakeJobStore()
	processor := &recordingProcessor{jobStore: jobStore}

	job, err := domain.NewJob(uuid.New(), "poem", "a poem about mountains")
	require.NoError(t, err)
	job.CreatedAt = time.Now().UTC().Add(-time.Minute)
	jobStore.put(job)

	runner, err := NewRunner(jobStore, processor, RunnerConfig{
		WorkerCount:  2,
		PollInterval: 20 * time.Millisecond,
		BatchSize:    10,
	}, testLogger())
	require.NoError(t, err)

	runner.Start()
	defer runner.Stop()

	assert.Eventually(t, func() bool {
		return len(processor.processed()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, job.ID, processor.processed()[0])
	assert.Equal(t, domain.JobStatusSuccess, jobStore.get(job.ID).Status)
}

func TestRunner_HonorsExecutionDelay(t *testing.T) {
	t.Parallel()

	jobStore := newFakeJobStore()
	processor := &recordingProcessor{jobStore: jobStore}

	// Fresh job: not yet past the delay window.
	job, err := domain.NewJob(uuid.New(), "poem", "a poem about patience")
	require.NoError(t, err)
	jobStore.put(job)

	runner, err := NewRunner(jobStore, processor, RunnerConfig{
		WorkerCount:    1,
		PollInterval:   10 * time.Millisecond,
		ExecutionDelay: time.Hour,
		BatchSize:      10,
	}, testLogger())
	require.NoError(t, err)

	runner.Start()
	defer runner.Stop()

	assert.Never(t, func() bool {
		return len(processor.processed()) > 0
	}, 200*time.Millisecond, 20*time.Millisecond)

	assert.Equal(t, domain.JobStatusPending, jobStore.get(job.ID).Status)
}

func TestRunner_WakeShortensWait(t *testing.T) {
	t.Parallel()

	jobStore := newFakeJobStore()
	processor := &recordingProcessor{jobStore: jobStore}

	// Poll interval far beyond the test horizon: only a wake can trigger
	// the pickup.
	runner, err := NewRunner(jobStore, processor, RunnerConfig{
		WorkerCount:  1,
		PollInterval: time.Minute,
		BatchSize:    10,
	}, testLogger())
	require.NoError(t, err)

	runner.Start()
	defer runner.Stop()

	job, err := domain.NewJob(uuid.New(), "poem", "a poem about speed")
	require.NoError(t, err)
	job.CreatedAt = time.Now().UTC().Add(-time.Second)
	jobStore.put(job)

	runner.Wake()

	assert.Eventually(t, func() bool {
		return len(processor.processed()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRunner_ClaimPreventsDuplicateDispatch(t *testing.T) {
	t.Parallel()

	jobStore := newFakeJobStore()
	processor := &recordingProcessor{jobStore: jobStore}

	runner, err := NewRunner(jobStore, processor, DefaultRunnerConfig(), testLogger())
	require.NoError(t, err)

	id := uuid.New()
	assert.True(t, runner.claim(id))
	assert.False(t, runner.claim(id), "second claim for an in-flight job must fail")

	runner.release(id)
	assert.True(t, runner.claim(id), "claim must succeed again after release")
}

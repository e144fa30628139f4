package task

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine wires an engine around in-memory fakes with a fresh
// pending job already stored.
func newTestEngine(t *testing.T, provider *fakeProvider, maxRetries int) (*Engine, *fakeJobStore, *fakeArtifactStore, *fakePublisher, *domain.Job) {
	t.Helper()

	jobStore := newFakeJobStore()
	artifactStore := newFakeArtifactStore()
	publisher := &fakePublisher{}

	engine, err := NewEngine(testLogger(), jobStore, artifactStore, nil, provider, publisher, maxRetries)
	require.NoError(t, err)

	job, err := domain.NewJob(uuid.New(), "poem", "a poem about the sea")
	require.NoError(t, err)
	jobStore.put(job)

	return engine, jobStore, artifactStore, publisher, job
}

// drive re-fetches the job and runs attempts until it reaches a terminal
// status or the attempt budget runs out, mimicking successive polls.
func drive(t *testing.T, engine *Engine, jobStore *fakeJobStore, id uuid.UUID, maxAttempts int) *domain.Job {
	t.Helper()

	for i := 0; i < maxAttempts; i++ {
		job := jobStore.get(id)
		require.NotNil(t, job)
		if job.IsTerminal() {
			return job
		}
		require.NoError(t, engine.Process(context.Background(), job))
	}
	return jobStore.get(id)
}

func TestNewEngine_Validation(t *testing.T) {
	t.Parallel()

	jobStore := newFakeJobStore()
	artifactStore := newFakeArtifactStore()
	provider := &fakeProvider{}

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()
		_, err := NewEngine(nil, jobStore, artifactStore, nil, provider, nil, 3)
		assert.Error(t, err)
	})

	t.Run("nil job store", func(t *testing.T) {
		t.Parallel()
		_, err := NewEngine(testLogger(), nil, artifactStore, nil, provider, nil, 3)
		assert.Error(t, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		t.Parallel()
		_, err := NewEngine(testLogger(), jobStore, artifactStore, nil, nil, nil, 3)
		assert.Error(t, err)
	})

	t.Run("negative max retries", func(t *testing.T) {
		t.Parallel()
		_, err := NewEngine(testLogger(), jobStore, artifactStore, nil, provider, nil, -1)
		assert.Error(t, err)
	})

	t.Run("nil publisher and completer are allowed", func(t *testing.T) {
		t.Parallel()
		engine, err := NewEngine(testLogger(), jobStore, artifactStore, nil, provider, nil, 3)
		require.NoError(t, err)
		assert.NotNil(t, engine)
	})
}

func TestEngine_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{script: []providerResult{{response: "generated text"}}}
	engine, jobStore, artifactStore, publisher, job := newTestEngine(t, provider, 3)

	require.NoError(t, engine.Process(context.Background(), job))

	stored := jobStore.get(job.ID)
	assert.Equal(t, domain.JobStatusSuccess, stored.Status)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Equal(t, 1, artifactStore.count())

	artifact, err := artifactStore.GetByJobID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "generated text", artifact.Response)

	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, domain.JobStatusSuccess, published[0].Status)
	require.NotNil(t, published[0].Artifact)
	assert.Equal(t, "generated text", published[0].Artifact.Response)
}

func TestEngine_TransientFailuresThenSuccess(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{script: []providerResult{
		{err: fmt.Errorf("%w: rate limited", generation.ErrTransient)},
		{err: fmt.Errorf("%w: timeout", generation.ErrTransient)},
		{response: "third time lucky"},
	}}
	engine, jobStore, artifactStore, publisher, job := newTestEngine(t, provider, 3)

	final := drive(t, engine, jobStore, job.ID, 5)

	assert.Equal(t, domain.JobStatusSuccess, final.Status)
	assert.Equal(t, 2, final.RetryCount)
	assert.Equal(t, 3, provider.callCount())
	assert.Equal(t, 1, artifactStore.count())

	published := publisher.published()
	require.Len(t, published, 3)
	assert.Equal(t, domain.JobStatusPending, published[0].Status)
	assert.Equal(t, 1, published[0].RetryCount)
	assert.Equal(t, domain.JobStatusPending, published[1].Status)
	assert.Equal(t, 2, published[1].RetryCount)
	assert.Equal(t, domain.JobStatusSuccess, published[2].Status)
}

func TestEngine_PermanentFailure(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{script: []providerResult{
		{err: fmt.Errorf("%w: model not found", generation.ErrPermanent)},
	}}
	engine, jobStore, artifactStore, publisher, job := newTestEngine(t, provider, 3)

	require.NoError(t, engine.Process(context.Background(), job))

	stored := jobStore.get(job.ID)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	assert.Equal(t, 0, stored.RetryCount, "permanent failures must not consume retries")
	assert.Equal(t, 1, provider.callCount())
	assert.Zero(t, artifactStore.count())

	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, domain.JobStatusFailed, published[0].Status)
	assert.Nil(t, published[0].Artifact)
}

func TestEngine_RetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{script: []providerResult{
		{err: fmt.Errorf("%w: flaky upstream", generation.ErrTransient)},
	}}
	engine, jobStore, artifactStore, _, job := newTestEngine(t, provider, 3)

	final := drive(t, engine, jobStore, job.ID, 10)

	assert.Equal(t, domain.JobStatusFailed, final.Status)
	assert.Equal(t, 3, final.RetryCount)
	// Initial attempt plus three retries.
	assert.Equal(t, 4, provider.callCount())
	assert.Zero(t, artifactStore.count())
}

func TestEngine_UnclassifiedErrorTreatedAsTransient(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{script: []providerResult{
		{err: fmt.Errorf("something unexpected")},
		{response: "recovered"},
	}}
	engine, jobStore, _, _, job := newTestEngine(t, provider, 3)

	final := drive(t, engine, jobStore, job.ID, 5)

	assert.Equal(t, domain.JobStatusSuccess, final.Status)
	assert.Equal(t, 1, final.RetryCount)
}

func TestEngine_ExistingArtifactCompletesWithoutProviderCall(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{script: []providerResult{{response: "should not be used"}}}
	engine, jobStore, artifactStore, publisher, job := newTestEngine(t, provider, 3)

	existing, err := domain.NewArtifact(job, "already generated")
	require.NoError(t, err)
	require.NoError(t, artifactStore.Create(context.Background(), existing))

	require.NoError(t, engine.Process(context.Background(), job))

	assert.Zero(t, provider.callCount(), "provider must not run when an artifact exists")
	assert.Equal(t, domain.JobStatusSuccess, jobStore.get(job.ID).Status)

	published := publisher.published()
	require.Len(t, published, 1)
	require.NotNil(t, published[0].Artifact)
	assert.Equal(t, "already generated", published[0].Artifact.Response)
}

func TestEngine_StaleSuccessWriteDoesNotAnnounce(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	engine, jobStore, artifactStore, publisher, job := newTestEngine(t, provider, 3)

	// An earlier attempt left an artifact behind, but the job has since
	// been resolved to failed by another writer.
	existing, err := domain.NewArtifact(job, "orphaned output")
	require.NoError(t, err)
	require.NoError(t, artifactStore.Create(context.Background(), existing))

	failed := jobStore.get(job.ID)
	failed.Status = domain.JobStatusFailed
	jobStore.put(failed)

	require.NoError(t, engine.Process(context.Background(), job))

	assert.Equal(t, domain.JobStatusFailed, jobStore.get(job.ID).Status,
		"the refused write must leave the stored status alone")
	assert.Empty(t, publisher.published(),
		"a refused success write must not emit a success event")
}

func TestEngine_ConcurrentEnginesProduceOneArtifact(t *testing.T) {
	t.Parallel()

	jobStore := newFakeJobStore()
	artifactStore := newFakeArtifactStore()
	publisher := &fakePublisher{}

	job, err := domain.NewJob(uuid.New(), "story", "a short story")
	require.NoError(t, err)
	jobStore.put(job)

	providerA := &fakeProvider{script: []providerResult{{response: "engine A output"}}}
	providerB := &fakeProvider{script: []providerResult{{response: "engine B output"}}}

	engineA, err := NewEngine(testLogger(), jobStore, artifactStore, nil, providerA, publisher, 3)
	require.NoError(t, err)
	engineB, err := NewEngine(testLogger(), jobStore, artifactStore, nil, providerB, publisher, 3)
	require.NoError(t, err)

	// Both engines see the job as pending with no artifact yet.
	jobA := jobStore.get(job.ID)
	jobB := jobStore.get(job.ID)

	require.NoError(t, engineA.Process(context.Background(), jobA))
	require.NoError(t, engineB.Process(context.Background(), jobB))

	assert.Equal(t, 1, artifactStore.count(), "racing engines must persist exactly one artifact")
	assert.Equal(t, domain.JobStatusSuccess, jobStore.get(job.ID).Status)

	// The second engine reports the first engine's artifact, not its own.
	winner, err := artifactStore.GetByJobID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "engine A output", winner.Response)
	for _, event := range publisher.published() {
		if event.Artifact != nil {
			assert.Equal(t, "engine A output", event.Artifact.Response)
		}
	}
}

func TestEngine_CompleterPersistsAtomically(t *testing.T) {
	t.Parallel()

	jobStore := newFakeJobStore()
	artifactStore := newFakeArtifactStore()
	completer := &fakeCompleter{jobs: jobStore, artifacts: artifactStore}
	provider := &fakeProvider{script: []providerResult{{response: "generated text"}}}

	engine, err := NewEngine(testLogger(), jobStore, artifactStore, completer, provider, nil, 3)
	require.NoError(t, err)

	job, err := domain.NewJob(uuid.New(), "poem", "a poem about transactions")
	require.NoError(t, err)
	jobStore.put(job)

	require.NoError(t, engine.Process(context.Background(), job))

	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, 1, artifactStore.count())
	assert.Equal(t, domain.JobStatusSuccess, jobStore.get(job.ID).Status)
}

func TestEngine_CompleterRefusalDiscardsArtifact(t *testing.T) {
	t.Parallel()

	jobStore := newFakeJobStore()
	artifactStore := newFakeArtifactStore()
	completer := &fakeCompleter{jobs: jobStore, artifacts: artifactStore}
	provider := &fakeProvider{script: []providerResult{{response: "generated text"}}}

	engine, err := NewEngine(testLogger(), jobStore, artifactStore, completer, provider, nil, 3)
	require.NoError(t, err)

	job, err := domain.NewJob(uuid.New(), "poem", "a poem about rollback")
	require.NoError(t, err)
	jobStore.put(job)

	// The job fails terminally between the poll and the status write.
	failed := jobStore.get(job.ID)
	failed.Status = domain.JobStatusFailed
	jobStore.put(failed)

	require.NoError(t, engine.Process(context.Background(), job))

	assert.Zero(t, artifactStore.count(), "refused completion must not leave an artifact")
	assert.Equal(t, domain.JobStatusFailed, jobStore.get(job.ID).Status)
}

func TestEngine_TerminalJobIsSkipped(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{script: []providerResult{{response: "unused"}}}
	engine, jobStore, _, publisher, job := newTestEngine(t, provider, 3)

	job.Status = domain.JobStatusFailed
	jobStore.put(job)

	require.NoError(t, engine.Process(context.Background(), job))

	assert.Zero(t, provider.callCount())
	assert.Empty(t, publisher.published())
}

func TestEngine_EmptyResponseFailsPermanently(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{script: []providerResult{{response: ""}}}
	engine, jobStore, artifactStore, _, job := newTestEngine(t, provider, 3)

	require.NoError(t, engine.Process(context.Background(), job))

	stored := jobStore.get(job.ID)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	assert.Zero(t, artifactStore.count())
}

package task

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/events"
	"github.com/inkwell-ai/inkwell-api/internal/store"
)

// fakeJobStore is an in-memory store.JobStore that mirrors the
// conditional-write semantics of the real implementation.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[uuid.UUID]*domain.Job)}
}

func (s *fakeJobStore) put(job *domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
}

func (s *fakeJobStore) get(id uuid.UUID) *domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		copied := *job
		return &copied
	}
	return nil
}

func (s *fakeJobStore) Create(ctx context.Context, job *domain.Job) error {
	s.put(job)
	return nil
}

func (s *fakeJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if job := s.get(id); job != nil {
		return job, nil
	}
	return nil, store.ErrJobNotFound
}

func (s *fakeJobStore) FindEligible(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var eligible []*domain.Job
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusPending && !job.CreatedAt.After(cutoff) {
			copied := *job
			eligible = append(eligible, &copied)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})

	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (s *fakeJobStore) SetQueueTicket(ctx context.Context, id uuid.UUID, ticket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	job.QueueTicket = ticket
	return nil
}

func (s *fakeJobStore) MarkSuccess(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status == domain.JobStatusFailed {
		return store.ErrStaleStatus
	}
	job.Status = domain.JobStatusSuccess
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeJobStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status != domain.JobStatusPending {
		return store.ErrStaleStatus
	}
	job.Status = domain.JobStatusFailed
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeJobStore) ScheduleRetry(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	if job.Status != domain.JobStatusPending {
		return nil, store.ErrStaleStatus
	}

	now := time.Now().UTC()
	job.RetryCount++
	job.CreatedAt = now
	job.UpdatedAt = now

	copied := *job
	return &copied, nil
}

func (s *fakeJobStore) SetSaved(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	job.Saved = true
	return nil
}

func (s *fakeJobStore) ListSaved(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Job, bool, error) {
	return nil, false, nil
}

func (s *fakeJobStore) WithTx(tx *sql.Tx) store.JobStore { return s }

// fakeArtifactStore is an in-memory store.ArtifactStore enforcing the
// one-artifact-per-job constraint.
type fakeArtifactStore struct {
	mu        sync.Mutex
	artifacts map[uuid.UUID]*domain.Artifact // keyed by job ID
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{artifacts: make(map[uuid.UUID]*domain.Artifact)}
}

func (s *fakeArtifactStore) Create(ctx context.Context, artifact *domain.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.artifacts[artifact.JobID]; ok {
		return store.ErrArtifactExists
	}
	copied := *artifact
	s.artifacts[artifact.JobID] = &copied
	return nil
}

func (s *fakeArtifactStore) GetByJobID(ctx context.Context, jobID uuid.UUID) (*domain.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if artifact, ok := s.artifacts[jobID]; ok {
		copied := *artifact
		return &copied, nil
	}
	return nil, store.ErrArtifactNotFound
}

func (s *fakeArtifactStore) WithTx(tx *sql.Tx) store.ArtifactStore { return s }

func (s *fakeArtifactStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.artifacts)
}

func (s *fakeArtifactStore) remove(jobID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, jobID)
}

// fakeCompleter applies the artifact insert and the success status as a
// single step, undoing the insert when the status write is refused.
type fakeCompleter struct {
	jobs      *fakeJobStore
	artifacts *fakeArtifactStore
	calls     int
}

func (c *fakeCompleter) CompleteJob(ctx context.Context, artifact *domain.Artifact) error {
	c.calls++
	if err := c.artifacts.Create(ctx, artifact); err != nil {
		return err
	}
	if err := c.jobs.MarkSuccess(ctx, artifact.JobID); err != nil {
		c.artifacts.remove(artifact.JobID)
		return err
	}
	return nil
}

// providerResult is one scripted outcome for fakeProvider.
type providerResult struct {
	response string
	err      error
}

// fakeProvider replays a scripted sequence of results. Once the script
// is exhausted, the last result repeats.
type fakeProvider struct {
	mu     sync.Mutex
	script []providerResult
	calls  int
}

func (p *fakeProvider) Generate(ctx context.Context, kind, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.calls
	p.calls++
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	if idx < 0 {
		return "", nil
	}
	return p.script[idx].response, p.script[idx].err
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []events.JobUpdateEvent
}

func (p *fakePublisher) PublishJobUpdate(ctx context.Context, event events.JobUpdateEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []events.JobUpdateEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.JobUpdateEvent, len(p.events))
	copy(out, p.events)
	return out
}

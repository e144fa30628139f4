package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
)

// JobUpdateEvent describes a state change for a single job. Events are
// published whenever a job transitions status so connected clients can be
// notified without polling.
type JobUpdateEvent struct {
	JobID      uuid.UUID        `json:"job_id"`
	UserID     uuid.UUID        `json:"user_id"`
	Status     domain.JobStatus `json:"status"`
	RetryCount int              `json:"retry_count"`
	Artifact   *ArtifactPayload `json:"artifact,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// ArtifactPayload is the artifact projection carried on success events.
// It is a copy rather than a reference so events stay valid after the
// originating transaction ends.
type ArtifactPayload struct {
	ID       uuid.UUID `json:"id"`
	Response string    `json:"response"`
}

// NewJobUpdateEvent builds an event from a job's current state. The
// artifact is optional and only present on success transitions.
func NewJobUpdateEvent(job *domain.Job, artifact *domain.Artifact) JobUpdateEvent {
	event := JobUpdateEvent{
		JobID:      job.ID,
		UserID:     job.UserID,
		Status:     job.Status,
		RetryCount: job.RetryCount,
		OccurredAt: time.Now().UTC(),
	}

	if artifact != nil {
		event.Artifact = &ArtifactPayload{
			ID:       artifact.ID,
			Response: artifact.Response,
		}
	}

	return event
}

// Publisher delivers job update events to interested subscribers.
// Implementations must be safe for concurrent use. Publishing is
// best-effort: a failed publish never affects job processing outcomes.
type Publisher interface {
	// PublishJobUpdate delivers the event to all current subscribers.
	PublishJobUpdate(ctx context.Context, event JobUpdateEvent) error
}

// Subscriber receives job update events published elsewhere in the
// system, typically across process boundaries.
type Subscriber interface {
	// SubscribeJobUpdates returns a channel of events. The channel is
	// closed when ctx is cancelled or the underlying stream fails.
	SubscribeJobUpdates(ctx context.Context) (<-chan JobUpdateEvent, error)
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/events"
	"github.com/inkwell-ai/inkwell-api/internal/platform/metrics"
)

// Hub routes job update events to connected clients. Each client is
// bound to the user it authenticated as; an event is only ever delivered
// to connections owned by the event's user, so one user can never observe
// another user's jobs.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With(slog.String("component", "gateway_hub")),
		clients: make(map[uuid.UUID]map[*client]struct{}),
	}
}

// Run consumes events from the subscriber and dispatches them until ctx
// is cancelled or the event stream closes.
func (h *Hub) Run(ctx context.Context, subscriber events.Subscriber) error {
	stream, err := subscriber.SubscribeJobUpdates(ctx)
	if err != nil {
		return err
	}

	h.logger.Info("hub subscribed to job updates")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-stream:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("job update stream closed")
			}
			h.Dispatch(event)
		}
	}
}

// Dispatch delivers one event to every matching connection of the
// event's owner. Slow clients have the event dropped rather than
// stalling delivery for everyone else.
func (h *Hub) Dispatch(event events.JobUpdateEvent) {
	payload, err := json.Marshal(newUpdateMessage(event))
	if err != nil {
		h.logger.Error("failed to marshal update message",
			"job_id", event.JobID,
			"error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[event.UserID] {
		if !c.wants(event.JobID) {
			continue
		}

		select {
		case c.send <- payload:
			metrics.GatewayEventDelivered()
		default:
			metrics.GatewayEventDropped()
			h.logger.Warn("dropping event for slow client",
				"user_id", event.UserID,
				"job_id", event.JobID)
		}
	}
}

// register adds a client to its user's connection set.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}

	metrics.GatewayConnOpened()
}

// unregister removes a client and closes its send channel.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}

	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)

	metrics.GatewayConnClosed()
}

// connectionCount reports the number of open connections for a user.
func (h *Hub) connectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// updateMessage is the wire format pushed to WebSocket clients.
type updateMessage struct {
	Type       string                  `json:"type"`
	JobID      uuid.UUID               `json:"job_id"`
	Status     string                  `json:"status"`
	RetryCount int                     `json:"retry_count"`
	Artifact   *events.ArtifactPayload `json:"artifact,omitempty"`
}

func newUpdateMessage(event events.JobUpdateEvent) updateMessage {
	return updateMessage{
		Type:       "job_update",
		JobID:      event.JobID,
		Status:     string(event.Status),
		RetryCount: event.RetryCount,
		Artifact:   event.Artifact,
	}
}

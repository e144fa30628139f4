package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// addTestClient registers a bare client without a live connection so
// dispatch behavior can be observed on its send channel.
func addTestClient(hub *Hub, userID uuid.UUID) *client {
	c := newClient(hub, nil, testLogger(), userID)
	hub.register(c)
	return c
}

func makeEvent(t *testing.T, userID uuid.UUID) events.JobUpdateEvent {
	t.Helper()
	job, err := domain.NewJob(userID, "poem", "a poem about wires")
	require.NoError(t, err)
	job.Status = domain.JobStatusSuccess
	return events.NewJobUpdateEvent(job, nil)
}

// subscribe registers the client's interest in a job the way a peer
// would, through a control message.
func subscribe(c *client, jobID uuid.UUID) {
	c.handleControl([]byte(`{"type":"subscribe","job_id":"` + jobID.String() + `"}`))
}

func receive(t *testing.T, c *client) updateMessage {
	t.Helper()
	select {
	case payload := <-c.send:
		var msg updateMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return updateMessage{}
	}
}

func TestHub_DispatchRoutesToOwnerOnly(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	userA := uuid.New()
	userB := uuid.New()

	clientA := addTestClient(hub, userA)
	clientB := addTestClient(hub, userB)

	event := makeEvent(t, userA)
	subscribe(clientA, event.JobID)
	// Subscribing to a foreign job must not grant access to its events.
	subscribe(clientB, event.JobID)

	hub.Dispatch(event)

	msg := receive(t, clientA)
	assert.Equal(t, "job_update", msg.Type)
	assert.Equal(t, event.JobID, msg.JobID)
	assert.Equal(t, "success", msg.Status)

	assert.Empty(t, clientB.send, "another user's client must not receive the event")
}

func TestHub_DispatchFansOutToAllOwnerConnections(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	userID := uuid.New()

	first := addTestClient(hub, userID)
	second := addTestClient(hub, userID)

	event := makeEvent(t, userID)
	subscribe(first, event.JobID)
	subscribe(second, event.JobID)

	hub.Dispatch(event)

	assert.Len(t, first.send, 1)
	assert.Len(t, second.send, 1)
}

func TestHub_DispatchRespectsJobFilter(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	userID := uuid.New()
	c := addTestClient(hub, userID)

	watched := makeEvent(t, userID)
	other := makeEvent(t, userID)

	// A connection that never subscribed receives nothing, even for its
	// own user's jobs.
	hub.Dispatch(watched)
	hub.Dispatch(other)
	assert.Empty(t, c.send, "unsubscribed connection must not receive events")

	subscribe(c, watched.JobID)

	hub.Dispatch(other)
	assert.Empty(t, c.send, "filtered client must not receive unwatched jobs")

	hub.Dispatch(watched)
	msg := receive(t, c)
	assert.Equal(t, watched.JobID, msg.JobID)

	// Unsubscribing returns the connection to receiving nothing.
	c.handleControl([]byte(`{"type":"unsubscribe","job_id":"` + watched.JobID.String() + `"}`))
	hub.Dispatch(watched)
	hub.Dispatch(other)
	assert.Empty(t, c.send)
}

func TestHub_SlowClientDoesNotBlockDispatch(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	userID := uuid.New()
	c := addTestClient(hub, userID)

	event := makeEvent(t, userID)
	subscribe(c, event.JobID)

	// Saturate the send buffer; further dispatches must drop, not block.
	for i := 0; i < sendBufferSize+5; i++ {
		hub.Dispatch(event)
	}

	assert.Len(t, c.send, sendBufferSize)
}

func TestHub_UnregisterRemovesClient(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	userID := uuid.New()
	c := addTestClient(hub, userID)

	require.Equal(t, 1, hub.connectionCount(userID))

	hub.unregister(c)
	assert.Zero(t, hub.connectionCount(userID))

	// Double unregister is a no-op, not a panic.
	hub.unregister(c)

	// Dispatch to a user with no connections is a no-op.
	hub.Dispatch(makeEvent(t, userID))
}

// fakeSubscriber feeds a pre-built channel of events.
type fakeSubscriber struct {
	ch chan events.JobUpdateEvent
}

func (s *fakeSubscriber) SubscribeJobUpdates(ctx context.Context) (<-chan events.JobUpdateEvent, error) {
	return s.ch, nil
}

func TestHub_RunDispatchesStreamedEvents(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	userID := uuid.New()
	c := addTestClient(hub, userID)

	sub := &fakeSubscriber{ch: make(chan events.JobUpdateEvent, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx, sub) }()

	event := makeEvent(t, userID)
	subscribe(c, event.JobID)
	sub.ch <- event

	msg := receive(t, c)
	assert.Equal(t, "job_update", msg.Type)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("hub.Run did not stop after cancel")
	}
}

package redisq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/inkwell-ai/inkwell-api/internal/events"
)

// updatesChannel carries job update events between the worker and any
// number of gateway processes.
const updatesChannel = "job:updates"

// Bus implements events.Publisher and events.Subscriber over Redis
// pub/sub. Delivery is at-most-once: a gateway that is down while an
// event fires simply misses it, and clients recover through the job
// status endpoint.
type Bus struct {
	logger *slog.Logger
	client *redis.Client
}

var (
	_ events.Publisher  = (*Bus)(nil)
	_ events.Subscriber = (*Bus)(nil)
)

func NewBus(logger *slog.Logger, client *redis.Client) *Bus {
	return &Bus{
		logger: logger.With(slog.String("component", "event_bus")),
		client: client,
	}
}

// PublishJobUpdate implements events.Publisher.
func (b *Bus) PublishJobUpdate(ctx context.Context, event events.JobUpdateEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job update event: %w", err)
	}

	if err := b.client.Publish(ctx, updatesChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish job update event: %w", err)
	}

	return nil
}

// SubscribeJobUpdates implements events.Subscriber. The returned channel
// is closed when ctx is cancelled. Malformed messages are logged and
// skipped rather than terminating the stream.
func (b *Bus) SubscribeJobUpdates(ctx context.Context) (<-chan events.JobUpdateEvent, error) {
	pubsub := b.client.Subscribe(ctx, updatesChannel)

	// Force the subscription to be established before returning so the
	// caller never silently misses events during startup.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", updatesChannel, err)
	}

	out := make(chan events.JobUpdateEvent)

	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var event events.JobUpdateEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.WarnContext(ctx, "Dropping malformed job update event",
						"error", err)
					continue
				}

				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

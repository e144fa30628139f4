package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// intakeKey is the Redis list that receives a ticket for every accepted
// job. The worker blocks on this list as a wake-up signal so newly created
// jobs are picked up ahead of the next poll tick.
const intakeKey = "jobs:intake"

// IntakeTicket is the payload pushed onto the intake list for each job.
type IntakeTicket struct {
	Ticket   string    `json:"ticket"`
	JobID    uuid.UUID `json:"job_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// IntakeQueue is the producer side of the intake list. Enqueue is
// best-effort: the database remains the source of truth and the poller
// will find the job even if the ticket is lost.
type IntakeQueue struct {
	client *redis.Client
}

func NewIntakeQueue(client *redis.Client) *IntakeQueue {
	return &IntakeQueue{client: client}
}

// Enqueue pushes a ticket for the given job and returns the ticket
// identifier for record keeping.
func (q *IntakeQueue) Enqueue(ctx context.Context, jobID uuid.UUID) (string, error) {
	ticket := IntakeTicket{
		Ticket:   uuid.NewString(),
		JobID:    jobID,
		IssuedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(ticket)
	if err != nil {
		return "", fmt.Errorf("failed to marshal intake ticket: %w", err)
	}

	if err := q.client.LPush(ctx, intakeKey, payload).Err(); err != nil {
		return "", fmt.Errorf("failed to push intake ticket: %w", err)
	}

	return ticket.Ticket, nil
}

// IntakeWaiter is the consumer side of the intake list.
type IntakeWaiter struct {
	client *redis.Client
}

func NewIntakeWaiter(client *redis.Client) *IntakeWaiter {
	return &IntakeWaiter{client: client}
}

// Wait blocks until a ticket arrives or the timeout elapses. It returns
// the ticket when one arrived, or nil on timeout. A nil ticket with a nil
// error means the caller should fall back to its regular poll cycle.
func (w *IntakeWaiter) Wait(ctx context.Context, timeout time.Duration) (*IntakeTicket, error) {
	result, err := w.client.BRPop(ctx, timeout, intakeKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop intake ticket: %w", err)
	}

	// BRPop returns [key, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length %d", len(result))
	}

	var ticket IntakeTicket
	if err := json.Unmarshal([]byte(result[1]), &ticket); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intake ticket: %w", err)
	}

	return &ticket, nil
}

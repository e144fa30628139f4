package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending JobStatus = "pending"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// Common validation errors for Job, each wrapping ErrValidation.
var (
	ErrEmptyJobID         = fmt.Errorf("job ID cannot be empty: %w", ErrValidation)
	ErrEmptyJobUserID     = fmt.Errorf("job user ID cannot be empty: %w", ErrValidation)
	ErrEmptyJobKind       = fmt.Errorf("job kind cannot be empty: %w", ErrValidation)
	ErrEmptyJobPrompt     = fmt.Errorf("job prompt cannot be empty: %w", ErrValidation)
	ErrInvalidJobStatus   = fmt.Errorf("invalid job status: %w", ErrValidation)
	ErrNegativeRetryCount = fmt.Errorf("job retry count cannot be negative: %w", ErrValidation)
)

// maxTitleLen caps the derived job title.
const maxTitleLen = 80

// Job represents one generation request submitted by a user. It tracks
// the request itself (kind + prompt) and the asynchronous processing
/// state: pending until the execution engine resolves it to a terminal
// success or failed status.
type Job struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Kind        string    `json:"kind"`
	Prompt      string    `json:"prompt"`
	Status      JobStatus `json:"status"`
	RetryCount  int       `json:"retry_count"`
	QueueTicket string    `json:"queue_ticket,omitempty"`
	Saved       bool      `json:"saved"`
	Title       string    `json:"title,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewJob creates a new Job with the given user ID, kind, and prompt.
// It generates a new UUID for the job ID, sets the status to pending with
// a zero retry count, derives a short title from the prompt, and sets the
// creation/update timestamps.
// Returns an error if validation fails.
func NewJob(userID uuid.UUID, kind, prompt string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:         uuid.New(),
		UserID:     userID,
		Kind:       strings.TrimSpace(kind),
		Prompt:     strings.TrimSpace(prompt),
		Status:     JobStatusPending,
		RetryCount: 0,
		Saved:      false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	job.Title = deriveTitle(job.Prompt)

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
// Returns an error if any field fails validation.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if j.UserID == uuid.Nil {
		return ErrEmptyJobUserID
	}

	if j.Kind == "" {
		return ErrEmptyJobKind
	}

	if j.Prompt == "" {
		return ErrEmptyJobPrompt
	}

	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	if j.RetryCount < 0 {
		return ErrNegativeRetryCount
	}

	return nil
}

// IsTerminal reports whether the job has reached a terminal status from
// which no further automatic transition occurs.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusSuccess || j.Status == JobStatusFailed
}

// EligibleAt returns the earliest moment the job may be executed: its
// creation time plus the configured execution delay. Retries reset
// CreatedAt, so the delay window restarts after every failed attempt.
func (j *Job) EligibleAt(delay time.Duration) time.Time {
	return j.CreatedAt.Add(delay)
}

// MarkSaved flags a successful job as saved by its owner.
// Returns ErrJobNotSuccessful if the job is not in the success state.
func (j *Job) MarkSaved() error {
	if j.Status != JobStatusSuccess {
		return ErrJobNotSuccessful
	}

	j.Saved = true
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// deriveTitle produces a short display title from the prompt text. The
// cap is applied on a rune boundary so multi-byte characters are never
// split mid-sequence.
func deriveTitle(prompt string) string {
	title := strings.Join(strings.Fields(prompt), " ")
	if len(title) > maxTitleLen {
		cut := maxTitleLen
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = strings.TrimSpace(title[:cut])
	}
	return title
}

// isValidJobStatus checks if the given status is a valid JobStatus.
func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusSuccess, JobStatusFailed:
		return true
	default:
		return false
	}
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Feedback-specific validation errors
var (
	ErrEmptyFeedbackID         = fmt.Errorf("feedback ID cannot be empty: %w", ErrValidation)
	ErrEmptyFeedbackArtifactID = fmt.Errorf("feedback artifact ID cannot be empty: %w", ErrValidation)
	ErrEmptyFeedbackUserID     = fmt.Errorf("feedback user ID cannot be empty: %w", ErrValidation)
	ErrInvalidFeedbackRating   = fmt.Errorf("feedback rating must be between 1 and 5: %w", ErrValidation)
)

// Feedback is a single rating with an optional comment that a user leaves
// on a generated artifact. A user may leave at most one feedback per
// artifact; the storage layer enforces this with a unique constraint on
// (artifact_id, user_id), the same pattern used for artifacts themselves.
type Feedback struct {
	ID         uuid.UUID `json:"id"`
	ArtifactID uuid.UUID `json:"artifact_id"`
	UserID     uuid.UUID `json:"user_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewFeedback creates a new Feedback with the given artifact ID, user ID,
// rating (1-5), and optional comment.
// Returns an error if validation fails.
func NewFeedback(artifactID, userID uuid.UUID, rating int, comment string) (*Feedback, error) {
	now := time.Now().UTC()
	feedback := &Feedback{
		ID:         uuid.New(),
		ArtifactID: artifactID,
		UserID:     userID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := feedback.Validate(); err != nil {
		return nil, err
	}

	return feedback, nil
}

// Validate checks if the Feedback has valid data.
// Returns an error if any field fails validation.
func (f *Feedback) Validate() error {
	if f.ID == uuid.Nil {
		return ErrEmptyFeedbackID
	}

	if f.ArtifactID == uuid.Nil {
		return ErrEmptyFeedbackArtifactID
	}

	if f.UserID == uuid.Nil {
		return ErrEmptyFeedbackUserID
	}

	if f.Rating < 1 || f.Rating > 5 {
		return ErrInvalidFeedbackRating
	}

	return nil
}

package domain

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("valid job", func(t *testing.T) {
		t.Parallel()

		job, err := NewJob(userID, "poem", "  a poem about the sea  ")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, job.ID)
		assert.Equal(t, userID, job.UserID)
		assert.Equal(t, "a poem about the sea", job.Prompt, "prompt must be trimmed")
		assert.Equal(t, JobStatusPending, job.Status)
		assert.Zero(t, job.RetryCount)
		assert.False(t, job.Saved)
		assert.Equal(t, "a poem about the sea", job.Title)
	})

	t.Run("empty user", func(t *testing.T) {
		t.Parallel()

		_, err := NewJob(uuid.Nil, "poem", "a poem")
		assert.ErrorIs(t, err, ErrEmptyJobUserID)
	})

	t.Run("empty kind", func(t *testing.T) {
		t.Parallel()

		_, err := NewJob(userID, "  ", "a poem")
		assert.ErrorIs(t, err, ErrEmptyJobKind)
	})

	t.Run("empty prompt", func(t *testing.T) {
		t.Parallel()

		_, err := NewJob(userID, "poem", "")
		assert.ErrorIs(t, err, ErrEmptyJobPrompt)
	})

	t.Run("long prompt yields capped title", func(t *testing.T) {
		t.Parallel()

		job, err := NewJob(userID, "essay", strings.Repeat("word ", 50))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(job.Title), maxTitleLen)
		assert.NotEmpty(t, job.Title)
	})

	t.Run("multi-byte prompt truncates on rune boundary", func(t *testing.T) {
		t.Parallel()

		// Each rune is 3 bytes, so the byte cap lands mid-rune.
		job, err := NewJob(userID, "essay", strings.Repeat("語", 60))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(job.Title), maxTitleLen)
		assert.True(t, utf8.ValidString(job.Title), "title must not split a rune")
	})
}

func TestJob_IsTerminal(t *testing.T) {
	t.Parallel()

	job, err := NewJob(uuid.New(), "poem", "a poem")
	require.NoError(t, err)

	assert.False(t, job.IsTerminal())

	job.Status = JobStatusSuccess
	assert.True(t, job.IsTerminal())

	job.Status = JobStatusFailed
	assert.True(t, job.IsTerminal())
}

func TestJob_EligibleAt(t *testing.T) {
	t.Parallel()

	job, err := NewJob(uuid.New(), "poem", "a poem")
	require.NoError(t, err)

	assert.Equal(t, job.CreatedAt, job.EligibleAt(0))
	assert.Equal(t, job.CreatedAt.Add(30*time.Second), job.EligibleAt(30*time.Second))
}

func TestJob_MarkSaved(t *testing.T) {
	t.Parallel()

	t.Run("pending job refuses", func(t *testing.T) {
		t.Parallel()

		job, err := NewJob(uuid.New(), "poem", "a poem")
		require.NoError(t, err)

		assert.ErrorIs(t, job.MarkSaved(), ErrJobNotSuccessful)
		assert.False(t, job.Saved)
	})

	t.Run("successful job saves", func(t *testing.T) {
		t.Parallel()

		job, err := NewJob(uuid.New(), "poem", "a poem")
		require.NoError(t, err)
		job.Status = JobStatusSuccess

		require.NoError(t, job.MarkSaved())
		assert.True(t, job.Saved)
	})
}

func TestNewArtifact(t *testing.T) {
	t.Parallel()

	job, err := NewJob(uuid.New(), "poem", "a poem about the sea")
	require.NoError(t, err)

	t.Run("echoes job fields", func(t *testing.T) {
		t.Parallel()

		artifact, err := NewArtifact(job, "the sea, in verse")
		require.NoError(t, err)

		assert.Equal(t, job.ID, artifact.JobID)
		assert.Equal(t, job.UserID, artifact.UserID)
		assert.Equal(t, job.Kind, artifact.Kind)
		assert.Equal(t, job.Prompt, artifact.Prompt)
		assert.Equal(t, "the sea, in verse", artifact.Response)
	})

	t.Run("empty response rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewArtifact(job, "")
		assert.Error(t, err)
	})

	t.Run("nil job rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewArtifact(nil, "text")
		assert.Error(t, err)
	})
}

func TestNewFeedback(t *testing.T) {
	t.Parallel()

	artifactID := uuid.New()
	userID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		fb, err := NewFeedback(artifactID, userID, 5, "excellent")
		require.NoError(t, err)
		assert.Equal(t, artifactID, fb.ArtifactID)
		assert.Equal(t, 5, fb.Rating)
	})

	t.Run("rating bounds", func(t *testing.T) {
		t.Parallel()

		_, err := NewFeedback(artifactID, userID, 0, "")
		assert.Error(t, err)

		_, err = NewFeedback(artifactID, userID, 6, "")
		assert.Error(t, err)
	})
}

func TestNewUser(t *testing.T) {
	t.Parallel()

	t.Run("normalizes email", func(t *testing.T) {
		t.Parallel()

		user, err := NewUser("  Writer@Example.COM ", "a-long-enough-password")
		require.NoError(t, err)
		assert.Equal(t, "writer@example.com", user.Email)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewUser("not-an-email", "a-long-enough-password")
		assert.Error(t, err)
	})
}

package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/inkwell-ai/inkwell-api/internal/config"
	"github.com/inkwell-ai/inkwell-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestNewGenerator_Validation(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()
		_, err := NewGenerator(ctx, nil, config.LLMConfig{
			GeminiAPIKey: "test-key",
			ModelName:    "gemini-2.0-flash",
		})
		assert.Error(t, err)
	})

	t.Run("missing API key", func(t *testing.T) {
		t.Parallel()
		_, err := NewGenerator(ctx, logger, config.LLMConfig{
			ModelName: "gemini-2.0-flash",
		})
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("missing model name", func(t *testing.T) {
		t.Parallel()
		_, err := NewGenerator(ctx, logger, config.LLMConfig{
			GeminiAPIKey: "test-key",
		})
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "deadline exceeded is transient",
			err:  context.DeadlineExceeded,
			want: generation.ErrTransient,
		},
		{
			name: "wrapped deadline exceeded is transient",
			err:  fmt.Errorf("calling API: %w", context.DeadlineExceeded),
			want: generation.ErrTransient,
		},
		{
			name: "model not found is permanent",
			err:  genai.APIError{Code: 404, Message: "model not found"},
			want: generation.ErrPermanent,
		},
		{
			name: "bad request is permanent",
			err:  genai.APIError{Code: 400, Message: "invalid argument"},
			want: generation.ErrPermanent,
		},
		{
			name: "invalid key is permanent",
			err:  genai.APIError{Code: 401, Message: "unauthorized"},
			want: generation.ErrPermanent,
		},
		{
			name: "rate limit is transient",
			err:  genai.APIError{Code: 429, Message: "rate limit exceeded"},
			want: generation.ErrTransient,
		},
		{
			name: "server error is transient",
			err:  genai.APIError{Code: 500, Message: "internal"},
			want: generation.ErrTransient,
		},
		{
			name: "unrecognized error defaults to transient",
			err:  errors.New("connection reset by peer"),
			want: generation.ErrTransient,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := classifyError(tc.err)
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	got := buildPrompt("poem", "a poem about autumn leaves")
	assert.Contains(t, got, "poem")
	assert.Contains(t, got, "a poem about autumn leaves")
}

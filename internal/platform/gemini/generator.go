package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell-ai/inkwell-api/internal/config"
	"github.com/inkwell-ai/inkwell-api/internal/generation"
	"google.golang.org/genai"
)

// Generator implements the generation.Provider interface using Google's
// Gemini API to generate content from job prompts.
type Generator struct {
	logger  *slog.Logger
	client  *genai.Client
	model   string
	timeout time.Duration
}

// Ensure Generator implements the provider interface
var _ generation.Provider = (*Generator)(nil)

// NewGenerator creates a new Gemini-backed Generator with the provided
// configuration. Returns an error if the configuration is invalid or the
// client cannot be constructed.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:  logger.With(slog.String("component", "gemini_generator")),
		client:  client,
		model:   cfg.ModelName,
		timeout: timeout,
	}, nil
}

// Generate implements generation.Provider. It builds a prompt from the
// request kind and prompt text, calls the Gemini API under the configured
// timeout, and classifies every failure as transient or permanent per the
// generation package's error contract.
func (g *Generator) Generate(ctx context.Context, kind, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", generation.ErrPermanent)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(
		callCtx,
		g.model,
		genai.Text(buildPrompt(kind, prompt)),
		nil,
	)
	latency := time.Since(start)

	if err != nil {
		classified := classifyError(err)
		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"error", err,
			"model", g.model,
			"latency_ms", latency.Milliseconds(),
			"transient", errors.Is(classified, generation.ErrTransient))
		return "", classified
	}

	text := resp.Text()
	if text == "" {
		// Safety blocks and empty candidates will not improve on retry.
		return "", fmt.Errorf("%w: model returned no content", generation.ErrPermanent)
	}

	g.logger.DebugContext(ctx, "Gemini API call successful",
		"model", g.model,
		"latency_ms", latency.Milliseconds(),
		"response_length", len(text))

	return text, nil
}

// buildPrompt frames the user's prompt with the requested content kind.
func buildPrompt(kind, prompt string) string {
	return fmt.Sprintf("Write a %s based on the following request.\n\n%s", kind, prompt)
}

// classifyError maps a Gemini SDK error onto the generation package's
// transient/permanent contract. Client-side request errors (bad model,
// invalid key, not found) are permanent; rate limits, server errors,
// timeouts, and anything unrecognized are treated as transient so the
// retry policy gets a chance to recover.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out: %v", generation.ErrTransient, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400, 401, 403, 404:
			return fmt.Errorf("%w: %v", generation.ErrPermanent, err)
		default:
			return fmt.Errorf("%w: %v", generation.ErrTransient, err)
		}
	}

	return fmt.Errorf("%w: %v", generation.ErrTransient, err)
}

package generation

import "context"

// Provider defines the interface for the external text generation service.
// This interface is the boundary between the job-processing core and the
// LLM backend: the core never sees provider SDK types, only generated text
// or a classified error.
type Provider interface {
	// Generate produces text for the given request kind and prompt.
	//
	// Implementations must classify every failure into exactly one of the
	// two error classes defined in this package: errors wrapping
	// ErrTransient are retried by the execution engine, errors wrapping
	// ErrPermanent terminate the job immediately. Classification happens
	// here, at the adapter boundary, so the engine never inspects provider
	// error strings.
	Generate(ctx context.Context, kind, prompt string) (string, error)
}

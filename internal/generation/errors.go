package generation

import "errors"

// Common errors returned by generation providers. These two sentinels form
// the structured failure-classification contract for the provider boundary:
// every provider error wraps exactly one of them, and the execution engine
// decides retry-vs-terminate with errors.Is rather than string matching.
var (
	// ErrTransient is returned for temporary failures that might resolve on
	// retry: network errors, rate limits, timeouts, overloaded backends.
	ErrTransient = errors.New("transient generation failure")

	// ErrPermanent is returned for failures that no retry can fix, such as
	// an unknown model name or an invalid provider configuration.
	ErrPermanent = errors.New("permanent generation failure")

	// ErrInvalidConfig is returned when the provider configuration is invalid.
	ErrInvalidConfig = errors.New("invalid provider configuration")
)

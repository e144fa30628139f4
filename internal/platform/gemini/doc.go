// Package gemini provides a generation.Provider implementation backed by
// Google's Gemini API. It owns the per-request timeout and translates SDK
// failures into the transient/permanent error contract that drives the
// worker's retry policy.
package gemini

// Package generation provides the interface and error contract for
// interacting with external AI/LLM services. It abstracts the details of
// provider API integration (Gemini), allowing the execution engine to
// generate content from job prompts without coupling to a specific
// external service.
package generation

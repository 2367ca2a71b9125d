// Package llm provides generator implementations.
//
// The factory creates a ports.Generator based on provider configuration:
//   - anthropic: Anthropic Messages API
//   - openai: OpenAI chat completions
//   - gemini: Google Gemini through its OpenAI-compatible endpoint
//
// Generators wrap a structured.SchemaError when a reply was truncated at the
// token limit, so the structured-output retrier repairs instead of failing.
package llm

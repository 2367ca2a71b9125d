package ports

import "context"

// GenerationRequest is a single prompt sent to a language model
type GenerationRequest struct {
	Model       string
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
	// JSONOutput asks the provider for a JSON object reply when it supports it
	JSONOutput bool
}

// GenerationResponse is the raw reply of a language model
type GenerationResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Generator is the backing generation capability.
// Implementations return an error wrapping a schema error when the
// provider itself rejected the reply shape; every other error is treated
// as a transport failure.
type Generator interface {
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error)
}

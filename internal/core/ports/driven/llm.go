// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService is an opaque text-completion backend: prompt in, text out.
// The generation router holds a local and a remote implementation.
//
// Implementations may include:
//   - Ollama (local models)
//   - OpenAI or any OpenAI-compatible endpoint (Gemini)
//   - Anthropic (Claude)
type LLMService interface {
	// Generate produces text completion from a prompt.
	// Implementations must honour ctx cancellation and deadlines.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

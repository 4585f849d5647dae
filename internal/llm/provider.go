// Package llm classifies and summarizes conversation replies through a
// chat-completion provider. Its output is attached to the aggregated
// records as opaque payloads; it never affects graph structure or
// metrics.
package llm

import "context"

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one prompt and returns the raw completion text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is a single prompt for the provider.
type CompletionRequest struct {
	// System is an optional system message.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens limits the response length.
	MaxTokens int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Workers bounds concurrent classification calls
	Workers int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   30,
		MaxTokens: 300,
		Workers:   4,
	}
}

package providers

import (
	"context"
	"time"
)

// Provider is a text-generation backend.
type Provider interface {
	// Generate produces one in-character reply for the given prompts.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Name returns the configured provider identifier.
	Name() string

	// Model returns the model this provider targets.
	Model() string
}

// Options configures a provider instance.
type Options struct {
	Name        string
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

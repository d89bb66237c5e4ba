package providers

import (
	"context"
	"fmt"
	"log/slog"
)

// Registry holds named providers and their configured fallback chain.
type Registry struct {
	providers   map[string]Provider
	fallbacks   map[string]string
	defaultName string
}

// NewRegistry creates an empty registry with the given default provider name.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		providers:   make(map[string]Provider),
		fallbacks:   make(map[string]string),
		defaultName: defaultName,
	}
}

// Register adds a provider under its name, with an optional fallback
// provider to try when it fails.
func (r *Registry) Register(p Provider, fallback string) {
	r.providers[p.Name()] = p
	if fallback != "" {
		r.fallbacks[p.Name()] = fallback
	}
}

// Generate produces a reply starting from the named provider (or the
// default when name is empty), following the fallback chain on failure.
// Visited providers are tracked so a cyclic chain terminates. Returns the
// generated text and the name of the provider that produced it.
func (r *Registry) Generate(ctx context.Context, name, systemPrompt, userPrompt string) (string, string, error) {
	if name == "" {
		name = r.defaultName
	}

	visited := make(map[string]bool)
	var lastErr error
	for name != "" && !visited[name] {
		visited[name] = true

		p, ok := r.providers[name]
		if !ok {
			return "", "", fmt.Errorf("provider %q not registered", name)
		}

		text, err := p.Generate(ctx, systemPrompt, userPrompt)
		if err == nil {
			return text, name, nil
		}
		lastErr = err

		next := r.fallbacks[name]
		if next != "" && !visited[next] {
			slog.Warn("provider failed, trying fallback",
				"provider", name, "fallback", next, "error", err)
		}
		name = next
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no provider available")
	}
	return "", "", lastErr
}

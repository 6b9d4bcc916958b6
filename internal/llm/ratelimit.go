package llm

import (
	"context"
	"fmt"
	"strings"
)

// Waiter blocks until a call against key may proceed.
// worker.Limiter satisfies it, keyed by the host of a URL.
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// RateLimitedProvider gates every completion through a Waiter
type RateLimitedProvider struct {
	Provider
	waiter   Waiter
	endpoint string
}

// NewRateLimitedProvider wraps p so that calls wait on w first.
// endpoint is the URL used as the limiter key.
func NewRateLimitedProvider(p Provider, w Waiter, endpoint string) *RateLimitedProvider {
	return &RateLimitedProvider{Provider: p, waiter: w, endpoint: endpoint}
}

// Complete waits for clearance, then delegates
func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.waiter.Wait(ctx, r.endpoint); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.Provider.Complete(ctx, req)
}

// Endpoint returns the base URL a provider configuration talks to
func Endpoint(config Config) string {
	if config.BaseURL != "" {
		return config.BaseURL
	}
	switch strings.ToLower(config.Provider) {
	case "openrouter":
		return openRouterBaseURL
	case "anthropic", "claude":
		return "https://api.anthropic.com"
	case "ollama":
		return "http://localhost:11434"
	default:
		return "https://api.openai.com/v1"
	}
}

package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ppiankov/adhikaar/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *CompletionResponse
	err       error

	mu       sync.Mutex
	requests []CompletionRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func (m *MockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func textResponse(s string) *CompletionResponse {
	return &CompletionResponse{Text: s, Model: "mock"}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantNil  bool
		wantErr  bool
	}{
		{"disabled", Config{}, "", true, false},
		{"openai", Config{Provider: "openai", APIKey: "k"}, "openai", false, false},
		{"openrouter", Config{Provider: "OpenRouter", APIKey: "k"}, "openrouter", false, false},
		{"claude alias", Config{Provider: "claude", APIKey: "k"}, "anthropic", false, false},
		{"ollama", Config{Provider: "ollama", Model: "llama3.1"}, "ollama", false, false},
		{"openai without key", Config{Provider: "openai"}, "", false, true},
		{"unknown", Config{Provider: "gpt"}, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.wantNil {
				if p != nil {
					t.Fatalf("Expected nil provider, got %s", p.Name())
				}
				return
			}
			if p.Name() != tt.wantName {
				t.Errorf("Expected %s, got %s", tt.wantName, p.Name())
			}
		})
	}
}

func TestNewProvider_OpenRouterDefaults(t *testing.T) {
	p, err := NewProvider(Config{Provider: "openrouter", APIKey: "k"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	op, ok := p.(*OpenAIProvider)
	if !ok {
		t.Fatalf("Expected *OpenAIProvider, got %T", p)
	}
	if op.config.BaseURL != openRouterBaseURL {
		t.Errorf("Expected OpenRouter base URL, got %s", op.config.BaseURL)
	}
	if op.config.Model != DefaultOpenRouterModel {
		t.Errorf("Expected default model %s, got %s", DefaultOpenRouterModel, op.config.Model)
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{
		Provider:    "anthropic",
		Model:       "claude-3-5-haiku-20241022",
		APIKey:      "secret",
		Timeout:     12,
		MaxTokens:   300,
		Temperature: 1.2,
		HTTPProxy:   "http://proxy:8080",
	})

	if cfg.Provider != "anthropic" || cfg.APIKey != "secret" || cfg.Timeout != 12 || cfg.MaxTokens != 300 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.HTTPProxy != "http://proxy:8080" {
		t.Errorf("Expected proxy to carry over, got %q", cfg.HTTPProxy)
	}
	if cfg.Temperature != 1.2 {
		t.Errorf("Expected temperature 1.2, got %v", cfg.Temperature)
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")

	if got := APIKeyFromEnv(Config{Provider: "openrouter"}).APIKey; got != "or-key" {
		t.Errorf("Expected or-key, got %q", got)
	}
	if got := APIKeyFromEnv(Config{Provider: "claude"}).APIKey; got != "ant-key" {
		t.Errorf("Expected ant-key, got %q", got)
	}
	if got := APIKeyFromEnv(Config{Provider: "openrouter", APIKey: "explicit"}).APIKey; got != "explicit" {
		t.Errorf("Explicit key must win, got %q", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "" {
		t.Errorf("Expected LLM disabled by default, got %q", cfg.Provider)
	}
	if cfg.Timeout != 30 {
		t.Errorf("Expected 30s timeout, got %d", cfg.Timeout)
	}
}

type recordingWaiter struct {
	keys []string
	err  error
}

func (w *recordingWaiter) Wait(ctx context.Context, key string) error {
	w.keys = append(w.keys, key)
	return w.err
}

func TestRateLimitedProvider(t *testing.T) {
	inner := &MockProvider{name: "mock", response: textResponse("ok")}
	waiter := &recordingWaiter{}
	p := NewRateLimitedProvider(inner, waiter, "https://openrouter.ai/api/v1")

	resp, err := p.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("Unexpected text %q", resp.Text)
	}
	if len(waiter.keys) != 1 || waiter.keys[0] != "https://openrouter.ai/api/v1" {
		t.Errorf("Expected one wait on the endpoint, got %v", waiter.keys)
	}
	if p.Name() != "mock" {
		t.Errorf("Expected wrapped name, got %s", p.Name())
	}

	waiter.err = context.Canceled
	if _, err := p.Complete(context.Background(), CompletionRequest{Prompt: "hi"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected wait error, got %v", err)
	}
	if inner.calls() != 1 {
		t.Errorf("Provider must not be called when the wait fails, got %d calls", inner.calls())
	}
}

func TestEndpoint(t *testing.T) {
	if got := Endpoint(Config{Provider: "openrouter"}); got != openRouterBaseURL {
		t.Errorf("Unexpected endpoint %s", got)
	}
	if got := Endpoint(Config{Provider: "ollama", BaseURL: "http://gpu:11434"}); got != "http://gpu:11434" {
		t.Errorf("BaseURL must win, got %s", got)
	}
}

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"age": 25}`, `{"age": 25}`},
		{"```json\n{\"age\": 25}\n```", `{"age": 25}`},
		{"```\n{\"age\": 25}\n```", `{"age": 25}`},
		{`Here you go: {"age": 25} hope that helps`, `{"age": 25}`},
		{"{\"age\": 25}\nLet me know if you need anything else.", `{"age": 25}`},
		{"```json\n{\"age\": 25}\n```\nAnything else?", `{"age": 25}`},
		{`[{"age": 25}] trailing`, `[{"age": 25}] trailing`},
		{"  not json  ", "not json"},
	}
	for _, tt := range tests {
		if got := CleanJSONBlock(tt.in); got != tt.want {
			t.Errorf("CleanJSONBlock(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

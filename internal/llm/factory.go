package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/adhikaar/internal/model"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	// DefaultOpenRouterModel is the model used when none is configured
	DefaultOpenRouterModel = "google/gemini-2.0-flash-001"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "openrouter":
		if config.BaseURL == "" {
			config.BaseURL = openRouterBaseURL
		}
		if config.Model == "" {
			config.Model = DefaultOpenRouterModel
		}
		p, err := NewOpenAIProvider(config)
		if err != nil {
			return nil, err
		}
		p.name = "openrouter"
		return p, nil

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - return nil (LLM disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, openrouter, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	return Config{
		Provider:    modelConfig.Provider,
		Model:       modelConfig.Model,
		APIKey:      modelConfig.APIKey,
		BaseURL:     modelConfig.BaseURL,
		Timeout:     modelConfig.Timeout,
		MaxTokens:   modelConfig.MaxTokens,
		Temperature: modelConfig.Temperature,
		HTTPProxy:   modelConfig.HTTPProxy,
		HTTPSProxy:  modelConfig.HTTPSProxy,
		NoProxy:     modelConfig.NoProxy,
	}
}

// APIKeyFromEnv fills in a missing API key from the provider's
// conventional environment variable
func APIKeyFromEnv(config Config) Config {
	if config.APIKey != "" {
		return config
	}
	switch strings.ToLower(config.Provider) {
	case "openrouter":
		config.APIKey = os.Getenv("OPENROUTER_API_KEY")
	case "openai":
		config.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
	return config
}

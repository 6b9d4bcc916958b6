package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete adhikaar configuration
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Catalog      CatalogConfig      `yaml:"catalog" mapstructure:"catalog"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig    `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Conversation ConversationConfig `yaml:"conversation" mapstructure:"conversation"`
	LinkCheck    LinkCheckConfig    `yaml:"link_check" mapstructure:"link_check"`
}

// LLMConfig configures the extractor/phraser language model
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai openrouter anthropic claude ollama"`
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"` // phrasing only
	HTTPProxy   string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CatalogConfig selects and configures the scheme catalog provider
type CatalogConfig struct {
	Source      string        `yaml:"source" mapstructure:"source" validate:"oneof=file postgres supabase"`
	Path        string        `yaml:"path,omitempty" mapstructure:"path" validate:"required_if=Source file"`
	DatabaseURL string        `yaml:"database_url,omitempty" mapstructure:"database_url" validate:"required_if=Source postgres"`
	SupabaseURL string        `yaml:"supabase_url,omitempty" mapstructure:"supabase_url" validate:"required_if=Source supabase"`
	SupabaseKey string        `yaml:"supabase_key,omitempty" mapstructure:"supabase_key"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`
	UserAgent   string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// CacheConfig configures catalog snapshot caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds batch evaluation
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// RateLimitConfig throttles calls to the language model endpoint
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=0"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=console json"`
}

// ConversationConfig tunes the conversation loop
type ConversationConfig struct {
	// UsePhraser lets the LLM word questions; templates are used otherwise
	UsePhraser bool `yaml:"use_phraser" mapstructure:"use_phraser"`
	// ExtractorTimeout caps one extraction round trip
	ExtractorTimeout time.Duration `yaml:"extractor_timeout" mapstructure:"extractor_timeout"`
}

// LinkCheckConfig configures the catalog link checker
type LinkCheckConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Workers           int           `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	// OfficialDomains are the host suffixes counted as government sites
	OfficialDomains []string `yaml:"official_domains" mapstructure:"official_domains"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	cacheDir := ".adhikaar-cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".adhikaar", "cache")
	}

	return &Config{
		LLM: LLMConfig{
			Provider:    "", // disabled by default
			Model:       "",
			Timeout:     30,
			MaxTokens:   512,
			Temperature: 0.7,
		},
		Catalog: CatalogConfig{
			Source:     "file",
			Path:       "schemes.yaml",
			Timeout:    15 * time.Second,
			MaxRetries: 3,
			UserAgent:  "adhikaar/0.1",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   6 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Conversation: ConversationConfig{
			UsePhraser:       true,
			ExtractorTimeout: 20 * time.Second,
		},
		LinkCheck: LinkCheckConfig{
			Timeout:           10 * time.Second,
			Workers:           8,
			RequestsPerSecond: 1,
			RespectRobots:     true,
			OfficialDomains:   []string{"gov.in", "nic.in", "india.gov.in"},
		},
	}
}

// Validate checks field constraints declared in struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

package llm

import (
	"fmt"
	"time"

	"github.com/aescanero/chloe/pkg/adapters/llm/anthropic"
	"github.com/aescanero/chloe/pkg/adapters/llm/openai"
	"github.com/aescanero/chloe/pkg/ports"
	"go.uber.org/zap"
)

// Config holds LLM client configuration
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewGenerator creates a generator based on provider
func NewGenerator(cfg *Config) (ports.Generator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("provider", cfg.Provider))

	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: 2,
		}, logger)
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, logger)
	case "gemini":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openai.GeminiBaseURL
		}
		return openai.NewClient(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: baseURL,
			Timeout: cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

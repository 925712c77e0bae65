package llm

import (
	"fmt"

	"github.com/soyeahso/scout/internal/config"
)

// NewClientFromConfig builds the client for the configured provider.
func NewClientFromConfig(cfg config.ModelConfig) (Client, error) {
	switch cfg.Provider {
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, &config.ConfigError{Message: "model.apiKey is required for provider openai"}
		}
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Name), nil
	case "ollama":
		return NewOllamaClient(cfg.BaseURL, cfg.Name), nil
	case "claude":
		if cfg.APIKey == "" {
			return nil, &config.ConfigError{Message: "model.apiKey is required for provider claude"}
		}
		return NewClaudeAPIClient(cfg.APIKey, cfg.BaseURL, cfg.Name), nil
	default:
		return nil, fmt.Errorf("no LLM provider %q", cfg.Provider)
	}
}

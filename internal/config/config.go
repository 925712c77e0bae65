package config

import (
	"fmt"
	"strings"
)

// DefaultSystemPrompt is the system message that opens every conversation.
const DefaultSystemPrompt = "You are a helpful assistant that can scrape websites, crawl pages, and extract data using Firecrawl tools. Think step by step and use the appropriate tools to help the user."

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	temp := 0.0
	cfg := Config{
		Model: ModelConfig{
			Provider:       "openai",
			Name:           "gpt-4o-mini",
			Temperature:    &temp,
			TimeoutSeconds: 120,
		},
		ToolServer: ToolServerConfig{
			Name:    "firecrawl",
			Command: "npx",
			Args:    []string{"-y", "firecrawl-mcp"},
			Env: map[string]string{
				"FIRECRAWL_API_KEY": "${FIRECRAWL_API_KEY}",
			},
			InitTimeoutSeconds: 60,
			CallTimeoutSeconds: 180,
			TerminateSeconds:   5,
		},
		Agent: AgentConfig{
			MaxRounds:     10,
			MaxInputChars: 175000,
			SystemPrompt:  DefaultSystemPrompt,
		},
		Logging: LoggingConfig{
			Level:        "warn",
			ConsoleStyle: "pretty",
		},
	}
	applyDefaults(&cfg)
	return cfg
}

// Check validates cfg and folds every issue into a single ConfigError.
func Check(cfg *Config) error {
	issues := Validate(cfg)
	if len(issues) == 0 {
		return nil
	}
	msgs := make([]string, len(issues))
	for i, issue := range issues {
		msgs[i] = issue.String()
	}
	return &ConfigError{Message: strings.Join(msgs, "; ")}
}

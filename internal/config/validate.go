package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Providers lists the supported model providers.
var Providers = []string{"openai", "ollama", "claude"}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Model validation
	if !slices.Contains(Providers, cfg.Model.Provider) {
		add("model.provider", "must be one of %v, got %q", Providers, cfg.Model.Provider)
	}
	if strings.TrimSpace(cfg.Model.Name) == "" {
		add("model.name", "model name is required")
	}
	if cfg.Model.Provider != "ollama" {
		if name, ok := unresolvedVar(cfg.Model.APIKey); ok {
			add("model.apiKey", "environment variable %s is not set", name)
		} else if cfg.Model.APIKey == "" {
			add("model.apiKey", "required for provider %q", cfg.Model.Provider)
		}
	}
	if t := cfg.Model.Temperature; t != nil && (*t < 0 || *t > 2) {
		add("model.temperature", "must be between 0 and 2, got %g", *t)
	}
	if cfg.Model.MaxTokens < 0 {
		add("model.maxTokens", "must not be negative, got %d", cfg.Model.MaxTokens)
	}
	if cfg.Model.TimeoutSeconds < 1 {
		add("model.timeoutSeconds", "must be at least 1, got %d", cfg.Model.TimeoutSeconds)
	}

	// Tool server validation
	if strings.TrimSpace(cfg.ToolServer.Command) == "" {
		add("toolServer.command", "command is required")
	}
	keys := make([]string, 0, len(cfg.ToolServer.Env))
	for k := range cfg.ToolServer.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := cfg.ToolServer.Env[k]
		if k == "" || strings.Contains(k, "=") {
			add("toolServer.env", "invalid variable name %q", k)
			continue
		}
		if name, ok := unresolvedVar(v); ok {
			add("toolServer.env."+k, "environment variable %s is not set", name)
		} else if v == "" {
			add("toolServer.env."+k, "value is empty")
		}
	}
	if cfg.ToolServer.InitTimeoutSeconds < 1 {
		add("toolServer.initTimeoutSeconds", "must be at least 1, got %d", cfg.ToolServer.InitTimeoutSeconds)
	}
	if cfg.ToolServer.CallTimeoutSeconds < 1 {
		add("toolServer.callTimeoutSeconds", "must be at least 1, got %d", cfg.ToolServer.CallTimeoutSeconds)
	}
	if cfg.ToolServer.TerminateSeconds < 0 {
		add("toolServer.terminateSeconds", "must not be negative, got %d", cfg.ToolServer.TerminateSeconds)
	}

	// Agent validation
	if cfg.Agent.MaxRounds < 1 {
		add("agent.maxRounds", "must be at least 1, got %d", cfg.Agent.MaxRounds)
	}
	if cfg.Agent.MaxInputChars < 1 {
		add("agent.maxInputChars", "must be at least 1, got %d", cfg.Agent.MaxInputChars)
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}
	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		add("logging.consoleStyle", "must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle)
	}

	return issues
}

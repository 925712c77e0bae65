package config

import "time"

// Config is the root configuration for scout.
type Config struct {
	Model      ModelConfig      `yaml:"model,omitempty"`
	ToolServer ToolServerConfig `yaml:"toolServer,omitempty"`
	Agent      AgentConfig      `yaml:"agent,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
}

// ModelConfig selects and configures the language model provider.
type ModelConfig struct {
	Provider       string   `yaml:"provider,omitempty"` // "openai" | "ollama" | "claude"
	Name           string   `yaml:"name,omitempty"`     // model identifier, e.g. "gpt-4o-mini"
	APIKey         string   `yaml:"apiKey,omitempty"`   // may reference ${ENV_VAR}
	BaseURL        string   `yaml:"baseUrl,omitempty"`  // custom endpoint (OpenAI-compatible or Ollama)
	Temperature    *float64 `yaml:"temperature,omitempty"`
	MaxTokens      int      `yaml:"maxTokens,omitempty"`
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"`
}

// Timeout bounds a single model call.
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// ToolServerConfig describes how to launch the MCP tool server.
type ToolServerConfig struct {
	Name               string            `yaml:"name,omitempty"`
	Command            string            `yaml:"command,omitempty"`
	Args               []string          `yaml:"args,omitempty"`
	Env                map[string]string `yaml:"env,omitempty"` // values may reference ${ENV_VAR}
	InitTimeoutSeconds int               `yaml:"initTimeoutSeconds,omitempty"`
	CallTimeoutSeconds int               `yaml:"callTimeoutSeconds,omitempty"`
	TerminateSeconds   int               `yaml:"terminateSeconds,omitempty"`
}

// InitTimeout bounds process start plus the initialize handshake.
func (t ToolServerConfig) InitTimeout() time.Duration {
	return time.Duration(t.InitTimeoutSeconds) * time.Second
}

// CallTimeout bounds a single tool invocation.
func (t ToolServerConfig) CallTimeout() time.Duration {
	return time.Duration(t.CallTimeoutSeconds) * time.Second
}

// TerminateTimeout is how long a closing server may take to exit before it is killed.
func (t ToolServerConfig) TerminateTimeout() time.Duration {
	return time.Duration(t.TerminateSeconds) * time.Second
}

// AgentConfig controls the reasoning loop and the interactive shell.
type AgentConfig struct {
	MaxRounds     int    `yaml:"maxRounds,omitempty"`     // tool-call rounds allowed per turn
	MaxInputChars int    `yaml:"maxInputChars,omitempty"` // user input cap, in characters
	SystemPrompt  string `yaml:"systemPrompt,omitempty"`
	ExtraPrompt   string `yaml:"extraPrompt,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`         // relative paths live under the logs directory
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

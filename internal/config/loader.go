package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged so validation can name them.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// unresolvedVar returns the name of the first ${VAR} reference left in s.
func unresolvedVar(s string) (string, bool) {
	m := envVarPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// expandSensitiveFields processes environment variable references in
// credential fields and in the tool server's launch parameters.
func expandSensitiveFields(cfg *Config) {
	cfg.Model.APIKey = expandEnvVars(cfg.Model.APIKey)
	cfg.Model.BaseURL = expandEnvVars(cfg.Model.BaseURL)
	for i, arg := range cfg.ToolServer.Args {
		cfg.ToolServer.Args[i] = expandEnvVars(arg)
	}
	for k, v := range cfg.ToolServer.Env {
		cfg.ToolServer.Env[k] = expandEnvVars(v)
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()
	// Provider-dependent defaults are re-derived after overrides.
	cfg.Model.APIKey = ""
	cfg.Model.MaxTokens = 0
	// The Firecrawl launch line applies only when no command is configured.
	cfg.ToolServer.Name = ""
	cfg.ToolServer.Command = ""
	cfg.ToolServer.Args = nil
	cfg.ToolServer.Env = nil

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Model.Provider == "" {
		cfg.Model.Provider = "openai"
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = "gpt-4o-mini"
	}
	if cfg.Model.APIKey == "" {
		switch cfg.Model.Provider {
		case "openai":
			cfg.Model.APIKey = "${OPENAI_API_KEY}"
		case "claude":
			cfg.Model.APIKey = "${ANTHROPIC_API_KEY}"
		}
	}
	if cfg.Model.MaxTokens == 0 && cfg.Model.Provider == "claude" {
		// The Messages API requires max_tokens.
		cfg.Model.MaxTokens = 4096
	}
	if cfg.Model.Temperature == nil {
		temp := 0.0
		cfg.Model.Temperature = &temp
	}
	if cfg.Model.TimeoutSeconds == 0 {
		cfg.Model.TimeoutSeconds = 120
	}
	if cfg.ToolServer.Command == "" {
		cfg.ToolServer.Command = "npx"
		if cfg.ToolServer.Args == nil {
			cfg.ToolServer.Args = []string{"-y", "firecrawl-mcp"}
		}
		if cfg.ToolServer.Env == nil {
			cfg.ToolServer.Env = map[string]string{}
		}
		if _, ok := cfg.ToolServer.Env["FIRECRAWL_API_KEY"]; !ok {
			cfg.ToolServer.Env["FIRECRAWL_API_KEY"] = "${FIRECRAWL_API_KEY}"
		}
		if cfg.ToolServer.Name == "" {
			cfg.ToolServer.Name = "firecrawl"
		}
	}
	if cfg.ToolServer.Name == "" {
		cfg.ToolServer.Name = filepath.Base(cfg.ToolServer.Command)
	}
	if cfg.ToolServer.InitTimeoutSeconds == 0 {
		cfg.ToolServer.InitTimeoutSeconds = 60
	}
	if cfg.ToolServer.CallTimeoutSeconds == 0 {
		cfg.ToolServer.CallTimeoutSeconds = 180
	}
	if cfg.ToolServer.TerminateSeconds == 0 {
		cfg.ToolServer.TerminateSeconds = 5
	}
	if cfg.Agent.MaxRounds == 0 {
		cfg.Agent.MaxRounds = 10
	}
	if cfg.Agent.MaxInputChars == 0 {
		cfg.Agent.MaxInputChars = 175000
	}
	if cfg.Agent.SystemPrompt == "" {
		cfg.Agent.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads SCOUT_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCOUT_PROVIDER"); v != "" {
		cfg.Model.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("SCOUT_MODEL"); v != "" {
		cfg.Model.Name = v
	}
	if v := os.Getenv("SCOUT_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Agent.MaxRounds = n
		}
	}
	if v := os.Getenv("SCOUT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SCOUT_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

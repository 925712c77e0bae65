package agent

import (
	"fmt"
	"strings"
	"time"
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	Base        string
	ExtraPrompt string
	Now         time.Time
}

// BuildSystemPrompt constructs the system prompt for the LLM.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(cfg.Base))

	// Date context
	if !cfg.Now.IsZero() {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("Current date: %s", cfg.Now.Format("2006-01-02")))
	}

	// Extra/custom prompt
	if extra := strings.TrimSpace(cfg.ExtraPrompt); extra != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(extra)
	}

	return b.String()
}

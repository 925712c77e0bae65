package agent

import (
	"errors"
	"fmt"
)

// ErrRoundLimitExceeded is matched by every *RoundLimitError.
var ErrRoundLimitExceeded = errors.New("tool-call round limit exceeded")

// RoundLimitError is returned when the model keeps requesting tools after
// the configured number of rounds.
type RoundLimitError struct {
	Limit int
}

func (e *RoundLimitError) Error() string {
	return fmt.Sprintf("%s (limit %d)", ErrRoundLimitExceeded, e.Limit)
}

func (e *RoundLimitError) Unwrap() error { return ErrRoundLimitExceeded }

// UnknownToolError is returned when the model requests a tool that is not
// registered. No tool of that round is invoked.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// ToolError is a failure the tool itself reported. It is handed back to the
// model as the tool result instead of ending the turn.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}

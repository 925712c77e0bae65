package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/scout/internal/domain"
	"github.com/soyeahso/scout/internal/llm"
	"github.com/soyeahso/scout/internal/logging"
)

// defaultMaxRounds limits how many tool call rounds the agent can perform
// when the config leaves it unset.
const defaultMaxRounds = 10

// RunnerConfig configures the agent runner.
type RunnerConfig struct {
	Model        string
	MaxTokens    int
	Temperature  *float64
	MaxRounds    int
	ModelTimeout time.Duration
}

// RunResult is the outcome of one user turn.
type RunResult struct {
	Response string `json:"response"`
	// Messages holds everything the turn produced, in order: assistant
	// tool-call messages, tool results, and the final assistant answer.
	Messages []domain.Message `json:"messages"`
	Rounds   int              `json:"rounds"`
	Model    string           `json:"model,omitempty"`
	Usage    llm.Usage        `json:"usage"`
	Duration time.Duration    `json:"duration"`
}

// Runner is the reasoning loop: it queries the model, runs the tools it
// asks for, and repeats until the model answers in plain text.
type Runner struct {
	cfg    RunnerConfig
	client llm.Client
	tools  *ToolRegistry
	log    *logging.Logger
}

// NewRunner creates an agent runner.
func NewRunner(cfg RunnerConfig, client llm.Client, tools *ToolRegistry, log *logging.Logger) *Runner {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaultMaxRounds
	}
	if tools == nil {
		tools = NewToolRegistry()
	}
	return &Runner{
		cfg:    cfg,
		client: client,
		tools:  tools,
		log:    log.Sub("agent"),
	}
}

// Run answers the last message of history. history is not modified; the
// messages the turn produced are returned in RunResult.Messages.
func (r *Runner) Run(ctx context.Context, history []domain.Message) (*RunResult, error) {
	start := time.Now()

	r.log.Debug().Int("historyLen", len(history)).Msg("processing turn")

	working := make([]llm.Message, 0, len(history)+4)
	for _, m := range history {
		working = append(working, toLLMMessage(m))
	}
	defs := toLLMTools(r.tools.Definitions())

	var (
		produced []domain.Message
		usage    llm.Usage
	)

	// Tool execution loop
	for round := 0; ; round++ {
		resp, err := r.complete(ctx, working, defs)
		if err != nil {
			return nil, err
		}
		usage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			answer := domain.NewMessage(domain.RoleAssistant, resp.Content)
			produced = append(produced, answer)

			r.log.Info().
				Str("model", resp.Model).
				Int("rounds", round).
				Int("inputTokens", usage.InputTokens).
				Int("outputTokens", usage.OutputTokens).
				Dur("duration", time.Since(start)).
				Msg("response generated")

			return &RunResult{
				Response: resp.Content,
				Messages: produced,
				Rounds:   round,
				Model:    resp.Model,
				Usage:    usage,
				Duration: time.Since(start),
			}, nil
		}

		if round >= r.cfg.MaxRounds {
			r.log.Info().Int("limit", r.cfg.MaxRounds).Msg("round limit reached")
			return nil, &RoundLimitError{Limit: r.cfg.MaxRounds}
		}

		calls := toDomainCalls(resp.ToolCalls, round)
		tools, err := r.resolve(calls)
		if err != nil {
			return nil, err
		}

		r.log.Info().Int("round", round+1).Int("toolCalls", len(calls)).Msg("executing tool calls")

		assistant := domain.Message{
			Role:      domain.RoleAssistant,
			Content:   resp.Content,
			Timestamp: time.Now(),
			ToolCalls: calls,
		}
		produced = append(produced, assistant)
		working = append(working, toLLMMessage(assistant))

		for i, call := range calls {
			output, err := r.execute(ctx, tools[i], call)
			if err != nil {
				return nil, err
			}
			result := domain.ToolResultMessage(call, output)
			produced = append(produced, result)
			working = append(working, toLLMMessage(result))
		}
		// Loop to let the LLM process tool results
	}
}

func (r *Runner) complete(ctx context.Context, msgs []llm.Message, tools []llm.ToolDefinition) (*llm.CompletionResponse, error) {
	if r.cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ModelTimeout)
		defer cancel()
	}

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		Model:       r.cfg.Model,
		Messages:    msgs,
		Tools:       tools,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("LLM completion timed out after %s: %w", r.cfg.ModelTimeout, err)
		}
		return nil, fmt.Errorf("LLM completion: %w", err)
	}
	return resp, nil
}

// resolve looks up every requested tool before any of them runs.
func (r *Runner) resolve(calls []domain.ToolCall) ([]Tool, error) {
	tools := make([]Tool, len(calls))
	for i, call := range calls {
		t, ok := r.tools.Get(call.Name)
		if !ok {
			r.log.Info().Str("tool", call.Name).Msg("model requested unknown tool")
			return nil, &UnknownToolError{Name: call.Name}
		}
		tools[i] = t
	}
	return tools, nil
}

// execute runs one call. A *ToolError becomes the tool result text.
func (r *Runner) execute(ctx context.Context, tool Tool, call domain.ToolCall) (string, error) {
	start := time.Now()
	r.log.Debug().Str("tool", call.Name).Str("input", call.Input).Msg("executing tool")

	output, err := tool.Execute(ctx, call.Input)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			r.log.Debug().Str("tool", call.Name).Str("error", toolErr.Message).Msg("tool reported error")
			return "Error: " + toolErr.Message, nil
		}
		return "", fmt.Errorf("tool %s: %w", call.Name, err)
	}

	r.log.Debug().
		Str("tool", call.Name).
		Int("outputLen", len(output)).
		Dur("duration", time.Since(start)).
		Msg("tool completed")
	r.log.Trace().Str("tool", call.Name).Str("output", output).Msg("tool output")
	return output, nil
}

func toDomainCalls(calls []llm.ToolCall, round int) []domain.ToolCall {
	out := make([]domain.ToolCall, len(calls))
	for i, c := range calls {
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("call_%d_%d", round, i)
		}
		out[i] = domain.ToolCall{ID: id, Name: c.Name, Input: c.Input}
	}
	return out
}

func toLLMMessage(m domain.Message) llm.Message {
	out := llm.Message{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		Name:       m.ToolName,
	}
	for _, c := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{ID: c.ID, Name: c.Name, Input: c.Input})
	}
	return out
}

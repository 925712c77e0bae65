package agent

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soyeahso/scout/internal/domain"
	"github.com/soyeahso/scout/internal/llm"
	"github.com/soyeahso/scout/internal/logging"
	"github.com/soyeahso/scout/internal/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

// fakeTool records its invocations and returns a canned result.
type fakeTool struct {
	name   string
	output string
	err    error
	inputs []string
	calls  *[]string
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name }
func (f *fakeTool) InputSchema() string { return `{"type":"object"}` }

func (f *fakeTool) Execute(ctx context.Context, input string) (string, error) {
	f.inputs = append(f.inputs, input)
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name)
	}
	return f.output, f.err
}

func testHistory(text string) []domain.Message {
	return []domain.Message{
		domain.NewMessage(domain.RoleSystem, "You are a test agent."),
		domain.NewMessage(domain.RoleUser, text),
	}
}

func toolCallResponse(calls ...llm.ToolCall) *llm.CompletionResponse {
	return &llm.CompletionResponse{ToolCalls: calls, StopReason: "tool_calls"}
}

func newTestRunner(client llm.Client, tools ...Tool) *Runner {
	reg := NewToolRegistry()
	for _, t := range tools {
		reg.Register(t)
	}
	return NewRunner(RunnerConfig{Model: "test-model", MaxRounds: 10}, client, reg, silentLog())
}

// --- Runner tests ---

func TestRunnerPlainAnswerSingleRoundTrip(t *testing.T) {
	client := &llm.ScriptedClient{Responses: []*llm.CompletionResponse{
		{Content: "Hello!", Model: "test-model", Usage: llm.Usage{InputTokens: 20, OutputTokens: 4}},
	}}
	scrape := &fakeTool{name: "scrape"}
	runner := newTestRunner(client, scrape)

	history := testHistory("hi")
	result, err := runner.Run(context.Background(), history)
	require.NoError(t, err)

	assert.Equal(t, "Hello!", result.Response)
	assert.Equal(t, 0, result.Rounds)
	assert.Equal(t, 20, result.Usage.InputTokens)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, domain.RoleAssistant, result.Messages[0].Role)
	assert.Equal(t, "Hello!", result.Messages[0].Content)

	require.Len(t, client.Requests, 1, "exactly one model round-trip")
	req := client.Requests[0]
	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "hi", req.Messages[1].Content)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "scrape", req.Tools[0].Name)

	assert.Empty(t, scrape.inputs)
	assert.Len(t, history, 2, "caller history must not change")
}

func TestRunnerToolRoundTrip(t *testing.T) {
	client := &llm.ScriptedClient{Responses: []*llm.CompletionResponse{
		toolCallResponse(llm.ToolCall{ID: "call_1", Name: "scrape", Input: `{"url":"example.com"}`}),
		{Content: "example.com is a placeholder domain.", Usage: llm.Usage{InputTokens: 5}},
	}}
	scrape := &fakeTool{name: "scrape", output: "# Example Domain"}
	runner := newTestRunner(client, scrape)

	result, err := runner.Run(context.Background(), testHistory("summarise example.com"))
	require.NoError(t, err)

	assert.Equal(t, "example.com is a placeholder domain.", result.Response)
	assert.Equal(t, 1, result.Rounds)
	assert.Equal(t, []string{`{"url":"example.com"}`}, scrape.inputs)

	require.Len(t, result.Messages, 3)
	assert.Equal(t, domain.RoleAssistant, result.Messages[0].Role)
	require.Len(t, result.Messages[0].ToolCalls, 1)
	assert.Equal(t, domain.RoleTool, result.Messages[1].Role)
	assert.Equal(t, "# Example Domain", result.Messages[1].Content)
	assert.Equal(t, "call_1", result.Messages[1].ToolCallID)
	assert.Equal(t, "scrape", result.Messages[1].ToolName)
	assert.Equal(t, domain.RoleAssistant, result.Messages[2].Role)

	require.Len(t, client.Requests, 2)
	second := client.Requests[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, llm.RoleAssistant, second[2].Role)
	assert.Equal(t, "call_1", second[2].ToolCalls[0].ID)
	assert.Equal(t, llm.RoleTool, second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolCallID)
}

func TestRunnerSequentialToolCallsInOrder(t *testing.T) {
	var order []string
	scrape := &fakeTool{name: "scrape", output: "a", calls: &order}
	crawl := &fakeTool{name: "crawl", output: "b", calls: &order}
	client := &llm.ScriptedClient{Responses: []*llm.CompletionResponse{
		toolCallResponse(
			llm.ToolCall{ID: "1", Name: "crawl", Input: `{}`},
			llm.ToolCall{ID: "2", Name: "scrape", Input: `{}`},
		),
		{Content: "done"},
	}}
	runner := newTestRunner(client, scrape, crawl)

	result, err := runner.Run(context.Background(), testHistory("go"))
	require.NoError(t, err)
	assert.Equal(t, []string{"crawl", "scrape"}, order)
	require.Len(t, result.Messages, 4)
	assert.Equal(t, "b", result.Messages[1].Content)
	assert.Equal(t, "a", result.Messages[2].Content)
}

func TestRunnerUnknownToolInvokesNothing(t *testing.T) {
	client := &llm.ScriptedClient{Responses: []*llm.CompletionResponse{
		toolCallResponse(
			llm.ToolCall{ID: "1", Name: "scrape", Input: `{}`},
			llm.ToolCall{ID: "2", Name: "search", Input: `{}`},
		),
	}}
	scrape := &fakeTool{name: "scrape"}
	runner := newTestRunner(client, scrape)

	_, err := runner.Run(context.Background(), testHistory("find it"))

	var unknown *UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "search", unknown.Name)
	assert.Equal(t, "unknown tool: search", err.Error())
	assert.Empty(t, scrape.inputs, "no tool may run when any name is unknown")
}

func TestRunnerToolErrorIsFedBack(t *testing.T) {
	client := &llm.ScriptedClient{Responses: []*llm.CompletionResponse{
		toolCallResponse(llm.ToolCall{ID: "1", Name: "scrape", Input: `{"url":"bad"}`}),
		{Content: "That site could not be scraped."},
	}}
	scrape := &fakeTool{name: "scrape", err: &ToolError{Tool: "scrape", Message: "404 not found"}}
	runner := newTestRunner(client, scrape)

	result, err := runner.Run(context.Background(), testHistory("scrape bad"))
	require.NoError(t, err)
	assert.Equal(t, "Error: 404 not found", result.Messages[1].Content)
	assert.Equal(t, "That site could not be scraped.", result.Response)
}

func TestRunnerTransportErrorAbortsTurn(t *testing.T) {
	client := &llm.ScriptedClient{Responses: []*llm.CompletionResponse{
		toolCallResponse(llm.ToolCall{ID: "1", Name: "scrape", Input: `{}`}),
	}}
	lost := &mcp.TransportError{Op: "call scrape", Err: errors.New("broken pipe")}
	runner := newTestRunner(client, &fakeTool{name: "scrape", err: lost})

	_, err := runner.Run(context.Background(), testHistory("scrape"))

	var transportErr *mcp.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.Fatal())
	assert.Len(t, client.Requests, 1)
}

func TestRunnerRoundLimit(t *testing.T) {
	calls := 0
	client := &llm.MockClient{
		ProviderName: "loop",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			return toolCallResponse(llm.ToolCall{ID: "x", Name: "scrape", Input: `{}`}), nil
		},
	}
	scrape := &fakeTool{name: "scrape", output: "again"}
	reg := NewToolRegistry()
	reg.Register(scrape)
	runner := NewRunner(RunnerConfig{MaxRounds: 2}, client, reg, silentLog())

	_, err := runner.Run(context.Background(), testHistory("loop forever"))

	var limitErr *RoundLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 2, limitErr.Limit)
	assert.ErrorIs(t, err, ErrRoundLimitExceeded)
	assert.Equal(t, 3, calls)
	assert.Len(t, scrape.inputs, 2)
}

func TestRunnerDefaultMaxRounds(t *testing.T) {
	runner := NewRunner(RunnerConfig{}, &llm.MockClient{}, nil, silentLog())
	assert.Equal(t, defaultMaxRounds, runner.cfg.MaxRounds)
}

func TestRunnerModelError(t *testing.T) {
	client := &llm.MockClient{
		ProviderName: "failing",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, &llm.ProviderError{Provider: "failing", Message: "server error", Code: 500}
		},
	}
	runner := newTestRunner(client)

	_, err := runner.Run(context.Background(), testHistory("hi"))

	var provErr *llm.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, 500, provErr.Code)
	assert.Contains(t, err.Error(), "LLM completion")
}

func TestRunnerModelTimeout(t *testing.T) {
	client := &llm.MockClient{
		ProviderName: "slow",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	runner := NewRunner(RunnerConfig{ModelTimeout: 10 * time.Millisecond}, client, nil, silentLog())

	_, err := runner.Run(context.Background(), testHistory("hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunnerAssignsMissingCallIDs(t *testing.T) {
	client := &llm.ScriptedClient{Responses: []*llm.CompletionResponse{
		toolCallResponse(llm.ToolCall{Name: "scrape", Input: `{}`}),
		{Content: "ok"},
	}}
	runner := newTestRunner(client, &fakeTool{name: "scrape"})

	result, err := runner.Run(context.Background(), testHistory("go"))
	require.NoError(t, err)
	assert.Equal(t, "call_0_0", result.Messages[0].ToolCalls[0].ID)
	assert.Equal(t, "call_0_0", result.Messages[1].ToolCallID)
}

// --- Tool registry ---

func TestToolRegistryKeepsOrder(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(&fakeTool{name: "scrape"})
	reg.Register(&fakeTool{name: "crawl"})
	reg.Register(&fakeTool{name: "scrape", output: "replacement"})

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"scrape", "crawl"}, reg.Names())

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "fake crawl", defs[1].Description)

	tool, ok := reg.Get("scrape")
	require.True(t, ok)
	assert.Equal(t, "replacement", tool.(*fakeTool).output)

	_, ok = reg.Get("search")
	assert.False(t, ok)
}

// --- System prompt ---

func TestBuildSystemPrompt(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	got := BuildSystemPrompt(PromptConfig{Base: "Be helpful.", ExtraPrompt: "Answer in French.", Now: now})
	assert.Equal(t, "Be helpful.\n\nCurrent date: 2026-03-14\n\nAnswer in French.", got)

	assert.Equal(t, "Be helpful.", BuildSystemPrompt(PromptConfig{Base: "Be helpful.\n"}))
	assert.True(t, strings.HasPrefix(BuildSystemPrompt(PromptConfig{Now: now}), "Current date:"))
}

func TestRunnerTracesToolOutput(t *testing.T) {
	client := &llm.ScriptedClient{Responses: []*llm.CompletionResponse{
		toolCallResponse(llm.ToolCall{ID: "call_1", Name: "scrape", Input: `{"url":"example.com"}`}),
		{Content: "done"},
	}}
	reg := NewToolRegistry()
	reg.Register(&fakeTool{name: "scrape", output: "# Example Domain"})

	var buf bytes.Buffer
	runner := NewRunner(RunnerConfig{Model: "test-model", MaxRounds: 10}, client, reg, logging.New(&buf, "trace"))
	_, err := runner.Run(context.Background(), testHistory("scrape example.com"))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"message":"tool output"`)
	assert.Contains(t, buf.String(), `"output":"# Example Domain"`)
}

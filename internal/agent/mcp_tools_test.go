package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/soyeahso/scout/internal/config"
	"github.com/soyeahso/scout/internal/domain"
	"github.com/soyeahso/scout/internal/llm"
	"github.com/soyeahso/scout/internal/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubServer is an in-memory ToolServer.
type stubServer struct {
	tools   []mcp.ToolDescriptor
	listErr error
	result  *mcp.CallResult
	callErr error
	calls   []map[string]any
}

func (s *stubServer) ListTools(ctx context.Context) ([]mcp.ToolDescriptor, error) {
	return s.tools, s.listErr
}

func (s *stubServer) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallResult, error) {
	s.calls = append(s.calls, args)
	if s.callErr != nil {
		return nil, s.callErr
	}
	return s.result, nil
}

func scrapeDescriptor() mcp.ToolDescriptor {
	return mcp.ToolDescriptor{
		Name:        "scrape",
		Description: "Scrape a single URL",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"url":{"type":"string"}}}`),
	}
}

func TestLoadMCPTools(t *testing.T) {
	server := &stubServer{tools: []mcp.ToolDescriptor{
		scrapeDescriptor(),
		{Name: "crawl", Description: "Crawl a site"},
	}}
	reg := NewToolRegistry()

	names, err := LoadMCPTools(context.Background(), server, reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"scrape", "crawl"}, names)

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.JSONEq(t, `{"type":"object","properties":{"url":{"type":"string"}}}`, defs[0].InputSchema)
	assert.Empty(t, defs[1].InputSchema)
}

func TestLoadMCPToolsErrors(t *testing.T) {
	tests := []struct {
		name   string
		server *stubServer
	}{
		{"list fails", &stubServer{listErr: errors.New("boom")}},
		{"duplicate", &stubServer{tools: []mcp.ToolDescriptor{scrapeDescriptor(), scrapeDescriptor()}}},
		{"unnamed", &stubServer{tools: []mcp.ToolDescriptor{{Description: "?"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMCPTools(context.Background(), tt.server, NewToolRegistry())
			assert.Error(t, err)
		})
	}
}

func TestMCPToolExecute(t *testing.T) {
	server := &stubServer{result: &mcp.CallResult{Text: "# Example"}}
	tool := NewMCPTool(scrapeDescriptor(), server)

	out, err := tool.Execute(context.Background(), `{"url":"example.com"}`)
	require.NoError(t, err)
	assert.Equal(t, "# Example", out)
	require.Len(t, server.calls, 1)
	assert.Equal(t, map[string]any{"url": "example.com"}, server.calls[0])
}

func TestMCPToolExecuteEmptyArgs(t *testing.T) {
	server := &stubServer{result: &mcp.CallResult{Text: "ok"}}
	tool := NewMCPTool(scrapeDescriptor(), server)

	for _, input := range []string{"", "  ", "null"} {
		_, err := tool.Execute(context.Background(), input)
		require.NoError(t, err)
	}
	for _, args := range server.calls {
		assert.Equal(t, map[string]any{}, args)
	}
}

func TestMCPToolExecuteToolErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		result  *mcp.CallResult
		wantMsg string
		called  bool
	}{
		{"invalid json", `{"url":`, nil, "invalid arguments", false},
		{"not an object", `["example.com"]`, nil, "invalid arguments", false},
		{"tool reported error", `{}`, &mcp.CallResult{Text: "rate limited", IsError: true}, "rate limited", true},
		{"tool reported empty error", `{}`, &mcp.CallResult{IsError: true}, "tool reported an error", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &stubServer{result: tt.result}
			tool := NewMCPTool(scrapeDescriptor(), server)

			_, err := tool.Execute(context.Background(), tt.input)

			var toolErr *ToolError
			require.ErrorAs(t, err, &toolErr)
			assert.Equal(t, "scrape", toolErr.Tool)
			assert.Contains(t, toolErr.Message, tt.wantMsg)
			assert.Equal(t, tt.called, len(server.calls) == 1)
		})
	}
}

func TestMCPToolExecutePassesTransportErrors(t *testing.T) {
	lost := &mcp.TransportError{Op: "call scrape", Err: mcpsdk.ErrConnectionClosed}
	tool := NewMCPTool(scrapeDescriptor(), &stubServer{callErr: lost})

	_, err := tool.Execute(context.Background(), `{}`)
	assert.Same(t, lost, err)
}

// TestRunnerScrapeThenSummarise drives a full turn against a real MCP server
// running in process.
func TestRunnerScrapeThenSummarise(t *testing.T) {
	ctx := context.Background()

	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "firecrawl-test", Version: "test"}, nil)
	for _, name := range []string{"scrape", "crawl"} {
		server.AddTool(&mcpsdk.Tool{
			Name:        name,
			Description: name + " a URL",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{"url": map[string]any{"type": "string"}}},
		}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			var args struct {
				URL string `json:"url"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, err
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "Example Domain: used in documentation (" + args.URL + ")"}},
			}, nil
		})
	}

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	cfg := config.ToolServerConfig{Name: "firecrawl", InitTimeoutSeconds: 5, CallTimeoutSeconds: 5}
	sess, err := mcp.Connect(ctx, clientTransport, cfg, silentLog())
	require.NoError(t, err)
	defer sess.Close()

	reg := NewToolRegistry()
	names, err := LoadMCPTools(ctx, sess, reg)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"scrape", "crawl"}, names)

	client := &llm.ScriptedClient{Responses: []*llm.CompletionResponse{
		toolCallResponse(llm.ToolCall{ID: "call_1", Name: "scrape", Input: `{"url":"https://example.com"}`}),
		{Content: "example.com is reserved for documentation."},
	}}
	runner := NewRunner(RunnerConfig{MaxRounds: 3}, client, reg, silentLog())

	result, err := runner.Run(ctx, testHistory("Scrape example.com and summarise"))
	require.NoError(t, err)

	require.Len(t, result.Messages, 3)
	assert.Equal(t, domain.RoleTool, result.Messages[1].Role)
	assert.Equal(t, "Example Domain: used in documentation (https://example.com)", result.Messages[1].Content)
	assert.Equal(t, "example.com is reserved for documentation.", result.Response)
}

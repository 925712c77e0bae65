package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/soyeahso/scout/internal/mcp"
)

// ToolServer is the part of an MCP session the agent depends on.
type ToolServer interface {
	ListTools(ctx context.Context) ([]mcp.ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallResult, error)
}

// MCPTool exposes one tool of an MCP server as an agent Tool.
type MCPTool struct {
	desc   mcp.ToolDescriptor
	server ToolServer
}

// NewMCPTool wraps a discovered tool descriptor.
func NewMCPTool(desc mcp.ToolDescriptor, server ToolServer) *MCPTool {
	return &MCPTool{desc: desc, server: server}
}

func (t *MCPTool) Name() string        { return t.desc.Name }
func (t *MCPTool) Description() string { return t.desc.Description }

func (t *MCPTool) InputSchema() string {
	if len(t.desc.InputSchema) == 0 {
		return ""
	}
	return string(t.desc.InputSchema)
}

// Execute decodes the model's JSON arguments and calls the tool. Bad
// arguments and tool-reported failures come back as *ToolError; transport
// and protocol errors are returned as-is.
func (t *MCPTool) Execute(ctx context.Context, input string) (string, error) {
	args, err := decodeArgs(input)
	if err != nil {
		return "", &ToolError{Tool: t.desc.Name, Message: err.Error()}
	}

	res, err := t.server.CallTool(ctx, t.desc.Name, args)
	if err != nil {
		return "", err
	}
	if res.IsError {
		msg := res.Text
		if msg == "" {
			msg = "tool reported an error"
		}
		return "", &ToolError{Tool: t.desc.Name, Message: msg}
	}
	return res.Text, nil
}

func decodeArgs(input string) (map[string]any, error) {
	trimmed := bytes.TrimSpace([]byte(input))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// LoadMCPTools discovers the server's tools and registers each one. It
// returns the tool names in discovery order.
func LoadMCPTools(ctx context.Context, server ToolServer, reg *ToolRegistry) ([]string, error) {
	descs, err := server.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	names := make([]string, 0, len(descs))
	for _, d := range descs {
		if d.Name == "" {
			return nil, fmt.Errorf("tool server returned a tool without a name")
		}
		if _, exists := reg.Get(d.Name); exists {
			return nil, fmt.Errorf("duplicate tool name %q", d.Name)
		}
		reg.Register(NewMCPTool(d, server))
		names = append(names, d.Name)
	}
	return names, nil
}

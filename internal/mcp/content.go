package mcp

import (
	"encoding/json"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func toDescriptor(tool *mcpsdk.Tool) ToolDescriptor {
	if tool == nil {
		return ToolDescriptor{}
	}
	desc := ToolDescriptor{Name: tool.Name, Description: tool.Description}
	if tool.InputSchema != nil {
		if raw, err := json.Marshal(tool.InputSchema); err == nil {
			desc.InputSchema = raw
		}
	}
	return desc
}

// renderContent flattens a tool result into the text handed to the model.
// Text blocks are joined with newlines; binary content is replaced by a short
// placeholder. Structured content is used only when there is nothing else.
func renderContent(res *mcpsdk.CallToolResult) string {
	if res == nil {
		return ""
	}

	parts := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		switch c := c.(type) {
		case *mcpsdk.TextContent:
			parts = append(parts, c.Text)
		case *mcpsdk.ImageContent:
			parts = append(parts, "[image: "+c.MIMEType+"]")
		case *mcpsdk.AudioContent:
			parts = append(parts, "[audio: "+c.MIMEType+"]")
		case *mcpsdk.ResourceLink:
			parts = append(parts, "[resource: "+c.URI+"]")
		case *mcpsdk.EmbeddedResource:
			switch {
			case c.Resource == nil:
				parts = append(parts, "[resource]")
			case c.Resource.Text != "":
				parts = append(parts, c.Resource.Text)
			default:
				parts = append(parts, "[resource: "+c.Resource.URI+"]")
			}
		default:
			parts = append(parts, "[unsupported content]")
		}
	}

	if len(parts) == 0 && res.StructuredContent != nil {
		if raw, err := json.Marshal(res.StructuredContent); err == nil {
			return string(raw)
		}
	}
	return strings.Join(parts, "\n")
}

package registry

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/vinodismyname/sheettools/internal/telemetry"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
)

// MCPTool builds the mcp-go schema for a descriptor. Every parameter is a
// required string; file parameters carry a base64 data URL.
func MCPTool(d Descriptor) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(d.Description),
		mcp.WithTitleAnnotation(d.Name),
		mcp.WithReadOnlyHintAnnotation(!d.Mutating),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	}
	for _, p := range d.Parameters {
		desc := p.Description
		if p.Type == "file" {
			desc += " Send as a data URL: data:<mime>;base64,<payload>."
		}
		opts = append(opts, mcp.WithString(p.Name, mcp.Required(), mcp.Description(desc)))
	}
	opts = append(opts, d.MCPOptions...)
	return mcp.NewTool(d.ID, opts...)
}

// RegisterMCPTools exposes every registered tool on an mcp-go server. Calls
// go through Run, so MCP and HTTP clients share one dispatch path.
func RegisterMCPTools(s *server.MCPServer, reg *Registry) {
	for _, d := range reg.all() {
		s.AddTool(MCPTool(d), reg.MCPHandler())
	}
}

// MCPHandler adapts Run to mcp-go's handler signature.
func (r *Registry) MCPHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if telemetry.RequestID(ctx) == "" {
			ctx = telemetry.WithRequestID(ctx, telemetry.NewRequestID())
		}
		raw, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcperr.ToolResult(mcperr.Wrapf(mcperr.InvalidParameters, err, "invalid arguments")), nil
		}
		out, err := r.Run(ctx, req.Params.Name, raw)
		if err != nil {
			return mcperr.ToolResult(err), nil
		}
		text, err := json.Marshal(out)
		if err != nil {
			return mcperr.ToolResult(err), nil
		}
		return mcp.NewToolResultStructured(out, string(text)), nil
	}
}

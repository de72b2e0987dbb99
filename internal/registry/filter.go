package registry

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// WriteToolFilter conditionally hides mutating tools. It is consulted by
// /mcp/info, MCP tool listings and dispatch, so a hidden tool is also
// uncallable.
type WriteToolFilter struct {
	allowWrites bool
}

// NewWriteToolFilter constructs a filter. Pass false to run read-only.
func NewWriteToolFilter(allowWrites bool) *WriteToolFilter {
	return &WriteToolFilter{allowWrites: allowWrites}
}

// AllowWrites reports whether mutating tools are enabled.
func (f *WriteToolFilter) AllowWrites() bool {
	return f == nil || f.allowWrites
}

// Allows reports whether d is visible and callable.
func (f *WriteToolFilter) Allows(d Descriptor) bool {
	return f.AllowWrites() || !d.Mutating
}

// FilterTools implements server tool filtering semantics.
// When writes are disabled, tools not annotated read-only are excluded.
func (f *WriteToolFilter) FilterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	if f.AllowWrites() {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if ro := t.Annotations.ReadOnlyHint; ro == nil || !*ro {
			continue
		}
		out = append(out, t)
	}
	return out
}

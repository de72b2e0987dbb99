package runtime

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
)

// Middleware enforces runtime limits for tool calls using the Controller.
// It bounds global concurrency and applies an operation timeout to each call.
type Middleware struct {
	ctrl *Controller
}

// NewMiddleware constructs a Middleware bound to the provided Controller.
func NewMiddleware(ctrl *Controller) *Middleware {
	return &Middleware{ctrl: ctrl}
}

// ToolMiddleware implements mcp-go's tool handler middleware interface.
// It acquires a request slot, applies a timeout, and guarantees release.
func (m *Middleware) ToolMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		release, err := m.ctrl.Admit(ctx)
		if err != nil {
			// Tool-level error so the client can retry.
			return mcperr.ToolResult(err), nil
		}
		defer release()

		callCtx, cancel := m.ctrl.Bound(ctx)
		defer cancel()

		res, err := next(callCtx, req)

		// A handler that ran into the deadline surfaces as a tool-level timeout.
		if errors.Is(err, context.DeadlineExceeded) || (callCtx.Err() == context.DeadlineExceeded && err == nil && res == nil) {
			return mcperr.ToolResult(context.DeadlineExceeded), nil
		}
		return res, err
	}
}

// Run executes fn under the same guardrails as ToolMiddleware for callers
// outside mcp-go, such as the HTTP run endpoint.
func (m *Middleware) Run(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	release, err := m.ctrl.Admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	callCtx, cancel := m.ctrl.Bound(ctx)
	defer cancel()

	out, err := fn(callCtx)
	if err == nil && callCtx.Err() == context.DeadlineExceeded {
		return nil, mcperr.From(context.DeadlineExceeded)
	}
	return out, err
}

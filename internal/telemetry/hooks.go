package telemetry

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
)

// Hooks implements server lifecycle callbacks for basic telemetry and logging.
// It is intentionally minimal; metrics backends can be added later under this package.
type Hooks struct {
	logger zerolog.Logger
}

// NewHooks constructs a Hooks instance with the provided logger.
func NewHooks(logger zerolog.Logger) *Hooks {
	return &Hooks{logger: logger}
}

// Logger returns the base logger.
func (h *Hooks) Logger() zerolog.Logger { return h.logger }

// OnServerStart is called when a transport begins accepting requests.
func (h *Hooks) OnServerStart(transport, addr string) {
	h.logger.Info().Str("transport", transport).Str("addr", addr).Msg("server starting")
}

// OnServerStop is called during server shutdown.
func (h *Hooks) OnServerStop(transport string, err error) {
	if err != nil {
		h.logger.Error().Str("transport", transport).Err(err).Msg("server stopped with error")
		return
	}
	h.logger.Info().Str("transport", transport).Msg("server stopped")
}

// OnSessionStart records the start of an MCP client session.
func (h *Hooks) OnSessionStart(sessionID string) {
	h.logger.Info().Str("session_id", sessionID).Msg("session started")
}

// OnSessionEnd records the end of an MCP client session.
func (h *Hooks) OnSessionEnd(sessionID string) {
	h.logger.Info().Str("session_id", sessionID).Msg("session ended")
}

// OnToolCall logs a dispatched tool invocation and its outcome code.
func (h *Hooks) OnToolCall(ctx context.Context, tool string, duration time.Duration, err error) {
	if err != nil {
		e := mcperr.From(err)
		evt := h.logger.Warn()
		if e.Status() >= 500 {
			evt = h.logger.Error()
		}
		evt.Str("request_id", RequestID(ctx)).Str("tool", tool).Dur("duration", duration).
			Str("code", string(e.Code)).Err(err).Msg("tool call error")
		return
	}
	h.logger.Info().Str("request_id", RequestID(ctx)).Str("tool", tool).Dur("duration", duration).Msg("tool call completed")
}

// OnHTTPRequest logs one served HTTP request.
func (h *Hooks) OnHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	evt := h.logger.Info()
	if status >= 500 {
		evt = h.logger.Error()
	} else if status >= 400 {
		evt = h.logger.Warn()
	}
	evt.Str("request_id", RequestID(ctx)).Str("method", method).Str("path", path).
		Int("status", status).Dur("duration", duration).Msg("http request served")
}

// MCPHooks adapts Hooks to mcp-go's server hook registry.
func (h *Hooks) MCPHooks() *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		h.OnSessionStart(session.SessionID())
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		h.OnSessionEnd(session.SessionID())
	})

	hooks.AddAfterListTools(func(ctx context.Context, id any, req *mcp.ListToolsRequest, res *mcp.ListToolsResult) {
		// Keep it light: tool count only
		h.logger.Debug().Int("tools", len(res.Tools)).Msg("list_tools served")
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		h.logger.Error().Str("method", string(method)).Err(err).Msg("mcp request error")
	})

	return hooks
}

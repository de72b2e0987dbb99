package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/vinodismyname/sheettools/config"
	"github.com/vinodismyname/sheettools/internal/registry"
	"github.com/vinodismyname/sheettools/internal/runtime"
	"github.com/vinodismyname/sheettools/internal/telemetry"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
)

// Options wires the HTTP API to the dispatcher and its guardrails.
type Options struct {
	Registry *registry.Registry
	// Guard bounds /mcp/run; nil runs calls unguarded.
	Guard *runtime.Middleware
	Hooks *telemetry.Hooks
	// MaxRequestBytes bounds request bodies; 0 means unbounded.
	MaxRequestBytes int64

	// MCPEndpoint mounts MCPHandler (an MCP streamable HTTP server) when both are set.
	MCPEndpoint string
	MCPHandler  http.Handler

	ShutdownTimeout time.Duration
}

// Server serves /healthz, /mcp/info, /mcp/run and optionally the MCP endpoint.
type Server struct {
	opts    Options
	handler http.Handler
}

// New builds the route table.
func New(opts Options) *Server {
	if opts.Hooks == nil {
		opts.Hooks = telemetry.NewHooks(zerolog.Nop())
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = config.DefaultShutdownTimeout
	}
	s := &Server{opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /mcp/info", s.handleInfo)
	mux.HandleFunc("POST /mcp/run", s.handleRun)
	if opts.MCPEndpoint != "" && opts.MCPHandler != nil {
		mux.Handle(opts.MCPEndpoint, opts.MCPHandler)
	}
	s.handler = s.withRequestID(s.withAccessLog(mux))
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Serve blocks while handling HTTP on listener.
// Cancel ctx to initiate graceful shutdown; in-flight requests are allowed to drain.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: config.DefaultReadHeaderTimeout,
		IdleTimeout:       60 * time.Second,
	}
	s.opts.Hooks.OnServerStart("http", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.opts.Hooks.OnServerStop("http", err)
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.opts.Hooks.OnServerStop("http", err)
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Registry.Info())
}

type runRequest struct {
	ToolID     string          `json:"tool_id"`
	Parameters json.RawMessage `json:"parameters"`
}

type runResponse struct {
	Result any `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if s.opts.MaxRequestBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxRequestBytes)
	}

	var req runRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, mcperr.Newf(mcperr.PayloadTooLarge, "request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, mcperr.Wrapf(mcperr.InvalidParameters, err, "request body must be a JSON object with tool_id and parameters"))
		return
	}

	call := func(ctx context.Context) (any, error) {
		return s.opts.Registry.Run(ctx, req.ToolID, req.Parameters)
	}
	var (
		out any
		err error
	)
	if s.opts.Guard != nil {
		out, err = s.opts.Guard.Run(r.Context(), call)
	} else {
		out, err = call(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Result: out})
}

// writeJSON encodes v before committing the status, so a value that cannot
// be encoded still yields an error envelope.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{
			Error: mcperr.Wrapf(mcperr.ExecutionError, err, "failed to encode response").Error(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, err error) {
	e := mcperr.From(err)
	writeJSON(w, e.Status(), errorResponse{Error: e.Error()})
}

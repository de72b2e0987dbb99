package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/vinodismyname/sheettools/internal/httpapi"
	"github.com/vinodismyname/sheettools/pkg/version"
	"golang.org/x/sync/errgroup"
)

type serveFlags struct {
	listen          string
	mcpEndpoint     string
	maxRequestBytes int64
	stdio           bool
}

func newServeCmd(global *GlobalFlags) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (default) or MCP over stdio",
		Long: "serve starts the HTTP API (/healthz, /mcp/info, /mcp/run and the MCP endpoint).\n" +
			"With --stdio it serves MCP on stdin/stdout instead; add --listen to run both.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, global, &f)
		},
	}
	cmd.Flags().StringVar(&f.listen, "listen", "", "host:port to listen on (default from config, 0.0.0.0:7777)")
	cmd.Flags().StringVar(&f.mcpEndpoint, "mcp-endpoint", "", "HTTP path of the MCP endpoint; empty string disables it")
	cmd.Flags().Int64Var(&f.maxRequestBytes, "max-request-bytes", 0, "reject larger request bodies; 0 is unbounded")
	cmd.Flags().BoolVar(&f.stdio, "stdio", false, "serve MCP over stdio")
	return cmd
}

func runServe(cmd *cobra.Command, global *GlobalFlags, f *serveFlags) error {
	cfg, err := loadConfig(cmd, global)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.ListenAddr = f.listen
	}
	if flags.Changed("mcp-endpoint") {
		cfg.MCPEndpoint = f.mcpEndpoint
	}
	if flags.Changed("max-request-bytes") {
		cfg.MaxRequestBytes = f.maxRequestBytes
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	a := newApp(cfg, logger)
	limits := a.controller.LimitsSnapshot()

	serveHTTP := !f.stdio || flags.Changed("listen")
	logger.Info().
		Str("version", version.Version()).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_open_workbooks", limits.MaxOpenWorkbooks).
		Int64("max_request_bytes", limits.MaxRequestBytes).
		Dur("operation_timeout", limits.OperationTimeout).
		Bool("read_only", cfg.ReadOnly).
		Bool("stdio", f.stdio).
		Bool("http", serveHTTP).
		Msg("server bootstrap configured")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	mcpSrv := a.mcpServer()
	g, gctx := errgroup.WithContext(ctx)

	if serveHTTP {
		ln, err := net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
		}
		httpSrv := httpapi.New(httpapi.Options{
			Registry:        a.registry,
			Guard:           a.guard,
			Hooks:           a.hooks,
			MaxRequestBytes: cfg.MaxRequestBytes,
			MCPEndpoint:     cfg.MCPEndpoint,
			MCPHandler: server.NewStreamableHTTPServer(mcpSrv,
				server.WithEndpointPath(cfg.MCPEndpoint),
				server.WithStateLess(true),
			),
			ShutdownTimeout: cfg.ShutdownTimeout,
		})
		g.Go(func() error { return httpSrv.Serve(gctx, ln) })
	}

	if f.stdio {
		g.Go(func() error {
			a.hooks.OnServerStart("stdio", "")
			err := server.NewStdioServer(mcpSrv).Listen(gctx, cmd.InOrStdin(), cmd.OutOrStdout())
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			a.hooks.OnServerStop("stdio", err)
			if err == nil && !serveHTTP {
				return nil
			}
			if err == nil {
				// stdin closed: stop the HTTP side too.
				stop()
			}
			return err
		})
	}

	return g.Wait()
}

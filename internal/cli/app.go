package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/vinodismyname/sheettools/config"
	"github.com/vinodismyname/sheettools/internal/registry"
	"github.com/vinodismyname/sheettools/internal/runtime"
	"github.com/vinodismyname/sheettools/internal/telemetry"
	"github.com/vinodismyname/sheettools/internal/tools"
	"github.com/vinodismyname/sheettools/internal/workbooks"
	"github.com/vinodismyname/sheettools/pkg/version"
	"github.com/xuri/excelize/v2"
)

const mcpInstructions = "Spreadsheet tools. Pass workbooks as data URLs (data:<mime>;base64,<payload>) " +
	"and address cells as 'SheetName!A1' or ranges as 'SheetName!A1:B10'."

// app holds the wired components shared by serve and run.
type app struct {
	cfg        config.Config
	logger     zerolog.Logger
	hooks      *telemetry.Hooks
	controller *runtime.Controller
	guard      *runtime.Middleware
	registry   *registry.Registry
}

func newApp(cfg config.Config, logger zerolog.Logger) *app {
	hooks := telemetry.NewHooks(logger)
	controller := runtime.NewController(runtime.LimitsFromConfig(cfg))

	decoder := &workbooks.Decoder{
		Gate: controller,
		Options: excelize.Options{
			UnzipSizeLimit:    cfg.UnzipSizeLimit,
			UnzipXMLSizeLimit: cfg.UnzipXMLSizeLimit,
		},
	}
	reg := tools.NewRegistry(tools.NewService(decoder)).
		WithFilter(registry.NewWriteToolFilter(!cfg.ReadOnly)).
		WithObserver(hooks)

	return &app{
		cfg:        cfg,
		logger:     logger,
		hooks:      hooks,
		controller: controller,
		guard:      runtime.NewMiddleware(controller),
		registry:   reg,
	}
}

// mcpServer exposes the registry over MCP with the same guardrails as HTTP.
func (a *app) mcpServer() *server.MCPServer {
	filter := a.registry.Filter()
	srv := server.NewMCPServer(
		tools.ServerName,
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithInstructions(mcpInstructions),
		server.WithRecovery(),
		server.WithHooks(a.hooks.MCPHooks()),
		server.WithToolHandlerMiddleware(a.guard.ToolMiddleware),
		server.WithToolFilter(filter.FilterTools),
	)
	registry.RegisterMCPTools(srv, a.registry)
	return srv
}

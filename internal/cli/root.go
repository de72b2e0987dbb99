package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/vinodismyname/sheettools/config"
)

// Exit codes
const (
	ExitSuccess       = 0
	ExitGenericError  = 1
	ExitConfigInvalid = 2
	ExitToolFailed    = 3
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// ExitCode maps an Execute error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return ExitGenericError
}

// GlobalFlags holds flags shared across all commands.
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	ReadOnly   bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var global GlobalFlags

	root := &cobra.Command{
		Use:           "sheettools",
		Short:         "Spreadsheet tool server",
		Long:          "sheettools exposes sum, average, cell read/write and CSV export over .xlsx files sent as base64 data URLs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&global.ConfigPath, "config", config.DefaultConfigFile, "TOML config file path")
	root.PersistentFlags().StringVar(&global.LogLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	root.PersistentFlags().StringVar(&global.LogFormat, "log-format", "", "log format: json|console")
	root.PersistentFlags().BoolVar(&global.ReadOnly, "read-only", false, "hide and refuse mutating tools")

	root.AddCommand(newServeCmd(&global))
	root.AddCommand(newRunCmd(&global))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command with args.
func Execute(args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

// loadConfig applies the config file, dotenv, environment and finally CLI flags.
func loadConfig(cmd *cobra.Command, global *GlobalFlags) (config.Config, error) {
	cfg, err := config.Load(config.Options{
		Path:        global.ConfigPath,
		Required:    cmd.Flags().Changed("config"),
		DotEnvFiles: []string{".env.local", ".env"},
	})
	if err != nil {
		return cfg, withExitCode(ExitConfigInvalid, err)
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = global.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = global.LogFormat
	}
	if flags.Changed("read-only") {
		cfg.ReadOnly = global.ReadOnly
	}
	return cfg, nil
}

func validateConfig(cfg config.Config) error {
	return withExitCode(ExitConfigInvalid, cfg.Validate())
}

// newLogger builds the process logger. Logs always go to w (stderr) so the
// stdio transport keeps stdout to itself.
func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if strings.EqualFold(cfg.LogFormat, "console") {
		w = zerolog.ConsoleWriter{Out: w}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "sheettools").Logger()
}

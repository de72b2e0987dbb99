package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vinodismyname/sheettools/internal/security"
	"github.com/vinodismyname/sheettools/internal/tools"
	"github.com/vinodismyname/sheettools/internal/workbooks"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
)

type runFlags struct {
	file   string
	params []string
	out    string
}

func newRunCmd(global *GlobalFlags) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <tool_id>",
		Short: "Run one tool against a local workbook",
		Long: "run executes a single tool without starting a server. --file is read from disk and sent as a\n" +
			"data URL; every --param key=value becomes a string parameter. The /mcp/run envelope is printed\n" +
			"to stdout. With --out, a returned file is also decoded and written to that path.\n" +
			"When allowed_dirs is configured, both paths must resolve inside one of those directories.",
		Example: "  sheettools run sum_range --file book.xlsx --param range=Sheet1!A1:A3\n" +
			"  sheettools run to_csv --file book.xlsx --out book.csv",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, global, &f, args[0])
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "workbook path passed as the 'file' parameter")
	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "tool parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&f.out, "out", "", "write a returned file to this path")
	return cmd
}

func runTool(cmd *cobra.Command, global *GlobalFlags, f *runFlags, toolID string) error {
	cfg, err := loadConfig(cmd, global)
	if err != nil {
		return err
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	guard, err := security.NewGuard(cfg.AllowedDirs)
	if err != nil {
		return withExitCode(ExitConfigInvalid, err)
	}
	var outPath string
	if f.out != "" {
		if outPath, err = guard.WritePath(f.out); err != nil {
			return withExitCode(ExitToolFailed, fmt.Errorf("--out %s: %w", f.out, err))
		}
	}
	params, err := buildParams(guard, f)
	if err != nil {
		return withExitCode(ExitToolFailed, err)
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}

	a := newApp(cfg, newLogger(cfg, cmd.ErrOrStderr()))
	ctx := a.logger.WithContext(cmd.Context())
	out, err := a.guard.Run(ctx, func(ctx context.Context) (any, error) {
		return a.registry.Run(ctx, toolID, raw)
	})
	if err != nil {
		e := mcperr.From(err)
		_ = printJSON(cmd, map[string]string{"error": e.Error()})
		return withExitCode(ExitToolFailed, e)
	}

	if outPath != "" {
		fr, ok := out.(tools.FileResult)
		if !ok {
			return withExitCode(ExitToolFailed, fmt.Errorf("tool %q does not return a file; --out cannot be used", toolID))
		}
		b, err := workbooks.Payload(fr.File)
		if err != nil {
			return withExitCode(ExitToolFailed, err)
		}
		if err := os.WriteFile(outPath, b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
	}
	return printJSON(cmd, map[string]any{"result": out})
}

func buildParams(guard *security.Guard, f *runFlags) (map[string]string, error) {
	params := make(map[string]string, len(f.params)+1)
	if f.file != "" {
		path, err := guard.ReadPath(f.file)
		if err != nil {
			return nil, fmt.Errorf("--file %s: %w", f.file, err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		params["file"] = workbooks.EncodeBytes(b, workbooks.MIMEXLSX)
	}
	for _, kv := range f.params {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", kv)
		}
		params[k] = v
	}
	return params, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

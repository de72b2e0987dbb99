package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vinodismyname/sheettools/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "sheettools %s\n", version.Version())
			return err
		},
	}
}

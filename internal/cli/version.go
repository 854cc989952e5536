package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/voicetap/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "voicetap", version.Get().String())
			return nil
		},
	}
}

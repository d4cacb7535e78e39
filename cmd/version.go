package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.olrik.dev/autodisplay/internal/core"
)

func NewVersionCommand() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "autodisplay %s\n", core.FormatVersion(core.Version))
		},
	}

	return versionCmd
}

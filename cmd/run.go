package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"go.olrik.dev/autodisplay/internal/core"
	"go.olrik.dev/autodisplay/internal/daemon"
)

func NewRunCommand() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Watch for AirPlay sessions and switch the display",
		Long: `Watch the marker file UxPlay creates for a connected client. On connect the
display is turned on, on disconnect it is turned off once the user has been idle
for longer than the idle timeout.`,
		Args: cobra.NoArgs,
		RunE: runDaemon,
	}

	return runCmd
}

func runDaemon(cmd *cobra.Command, args []string) error {
	return daemon.New(core.Config, slog.Default()).Run(cmd.Context())
}

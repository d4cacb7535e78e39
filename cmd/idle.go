package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.olrik.dev/autodisplay/internal/core"
	"go.olrik.dev/autodisplay/internal/daemon"
)

func NewIdleCommand() *cobra.Command {
	idleCmd := &cobra.Command{
		Use:   "idle",
		Short: "Show how long the user has been idle",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := core.Config

			ctrl, closeDisplay, err := daemon.OpenDisplay(cmd.Context(), cfg, slog.Default())
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to connect to idle service: %v", err), "operation", "bus_setup")
				os.Exit(1)
			}
			defer closeDisplay()

			idle, err := ctrl.IdleTime(cmd.Context())
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to query idle time: %v", err), "operation", "idle_query")
				os.Exit(1)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Idle: %s (timeout %s)\n", idle.Round(time.Second), cfg.IdleTimeout)
		},
	}

	return idleCmd
}

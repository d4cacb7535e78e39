package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.olrik.dev/autodisplay/internal/core"
	"go.olrik.dev/autodisplay/internal/display"
)

func NewPowerCommand() *cobra.Command {
	powerCmd := &cobra.Command{
		Use:       "power [on|off]",
		Short:     "Show or switch the display power",
		Long:      `Without an argument the current power state is printed. Switching on retries like the daemon does.`,
		Args:      cobra.MatchAll(cobra.RangeArgs(0, 1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		Run: func(cmd *cobra.Command, args []string) {
			cfg := core.Config

			hw := display.NewHardware(cfg.PowerConfig(), cfg.RetryPolicy(), nil, slog.Default())
			defer hw.Close()
			ctrl := display.NewController(nil, hw, cfg.QueryTimeout)

			if len(args) == 1 {
				on, err := parsePowerArg(args[0])
				if err != nil {
					slog.Error(err.Error())
					os.Exit(1)
				}
				if err := ctrl.SetPower(cmd.Context(), on); err != nil {
					slog.Error(fmt.Sprintf("Failed to switch display %s: %v", args[0], err), "operation", "power_write")
					os.Exit(1)
				}
			}

			powered, err := ctrl.Power(cmd.Context())
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to read display power: %v", err), "operation", "power_read")
				os.Exit(1)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Display: %s\n", formatPower(powered))
		},
	}

	return powerCmd
}

func parsePowerArg(arg string) (bool, error) {
	switch arg {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("unknown power state %q, expected on or off", arg)
	}
}

func formatPower(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

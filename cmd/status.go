package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
	"go.olrik.dev/autodisplay/internal/core"
	"go.olrik.dev/autodisplay/internal/daemon"
)

// statusReport is a one-shot snapshot of everything the daemon looks at
type statusReport struct {
	MarkerPath    string  `json:"marker_path"`
	MarkerPresent bool    `json:"marker_present"`
	MirrorProcess string  `json:"mirror_process"`
	MirrorPIDs    []int32 `json:"mirror_pids"`
	Powered       *bool   `json:"powered,omitempty"`
	PowerError    string  `json:"power_error,omitempty"`
	IdleSeconds   *int64  `json:"idle_seconds,omitempty"`
	IdleError     string  `json:"idle_error,omitempty"`
	IdleTimeout   int64   `json:"idle_timeout_seconds"`
}

func NewStatusCommand() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show marker file, mirroring process, display power and idle time",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			report := collectStatus(cmd.Context(), core.Config)

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "text":
				fmt.Fprint(cmd.OutOrStdout(), formatStatus(report))
			case "json":
				jsonBytes, _ := json.Marshal(report)
				fmt.Fprintln(cmd.OutOrStdout(), string(jsonBytes))
			default:
				slog.Error("unknown format")
				os.Exit(1)
			}
		},
	}
	statusCmd.Flags().StringP("format", "F", "text", "Format to use (text/json)")

	return statusCmd
}

func collectStatus(ctx context.Context, cfg *core.Configuration) statusReport {
	report := statusReport{
		MarkerPath:    filepath.Join(cfg.WatchDirectory, cfg.MarkerFile),
		MirrorProcess: cfg.MirrorProcess,
		IdleTimeout:   int64(cfg.IdleTimeout / time.Second),
	}

	_, err := os.Stat(report.MarkerPath)
	report.MarkerPresent = err == nil

	pids, err := processPIDs(ctx, cfg.MirrorProcess)
	if err != nil {
		slog.Debug("Failed to list processes", "error", err)
	}
	report.MirrorPIDs = pids

	ctrl, closeDisplay, err := daemon.OpenDisplay(ctx, cfg, slog.Default())
	if err != nil {
		report.PowerError = err.Error()
		report.IdleError = err.Error()
		return report
	}
	defer closeDisplay()

	if powered, err := ctrl.Power(ctx); err != nil {
		report.PowerError = err.Error()
	} else {
		report.Powered = &powered
	}

	if idle, err := ctrl.IdleTime(ctx); err != nil {
		report.IdleError = err.Error()
	} else {
		seconds := int64(idle / time.Second)
		report.IdleSeconds = &seconds
	}

	return report
}

// processPIDs returns the PIDs of all processes called name
func processPIDs(ctx context.Context, name string) ([]int32, error) {
	if name == "" {
		return nil, nil
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	var pids []int32
	for _, p := range procs {
		// Processes may exit while we iterate
		procName, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if procName == name {
			pids = append(pids, p.Pid)
		}
	}
	return pids, nil
}

func formatStatus(r statusReport) string {
	var b strings.Builder

	marker := "absent"
	if r.MarkerPresent {
		marker = "present"
	}
	fmt.Fprintf(&b, "Marker:  %s (%s)\n", marker, r.MarkerPath)

	if r.MirrorProcess != "" {
		if len(r.MirrorPIDs) == 0 {
			fmt.Fprintf(&b, "Mirror:  %s not running\n", r.MirrorProcess)
		} else {
			pids := make([]string, len(r.MirrorPIDs))
			for i, pid := range r.MirrorPIDs {
				pids[i] = fmt.Sprint(pid)
			}
			fmt.Fprintf(&b, "Mirror:  %s running (PID: %s)\n", r.MirrorProcess, strings.Join(pids, ", "))
		}
	}

	if r.Powered != nil {
		fmt.Fprintf(&b, "Display: %s\n", formatPower(*r.Powered))
	} else {
		fmt.Fprintf(&b, "Display: unknown (%s)\n", r.PowerError)
	}

	if r.IdleSeconds != nil {
		idle := time.Duration(*r.IdleSeconds) * time.Second
		timeout := time.Duration(r.IdleTimeout) * time.Second
		fmt.Fprintf(&b, "Idle:    %s (timeout %s)\n", idle, timeout)
	} else {
		fmt.Fprintf(&b, "Idle:    unknown (%s)\n", r.IdleError)
	}

	return b.String()
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.olrik.dev/autodisplay/internal/core"
	"go.olrik.dev/autodisplay/internal/daemon"
)

// flagValues holds the command line overrides. A flag only replaces the
// configured value when it was given explicitly.
type flagValues struct {
	configPath      string
	verbose         int
	watchDirectory  string
	markerFile      string
	idleTimeout     int
	i2cPath         string
	i2cOn           uint16
	i2cOff          uint16
	queryTimeout    time.Duration
	continueOnError bool
	idleService     string
}

func NewRootCommand() *cobra.Command {
	flags := &flagValues{}

	homeDir, _ := os.UserHomeDir()

	rootCmd := &cobra.Command{
		Use:   "autodisplay",
		Short: "autodisplay - display power for AirPlay mirroring",
		Long: `autodisplay turns the display on when an AirPlay client connects to UxPlay
and off again when it disconnects and nobody has used the machine for a while.

Without a sub-command the daemon is started.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			core.Config = cfg
			daemon.SetupLogging(cfg.Verbose)
			return nil
		},
		RunE: runDaemon,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config-path", fmt.Sprintf("%s/%s", homeDir, core.BaseDirName), "config path")
	pf.CountVarP(&flags.verbose, "verbose", "v", "more output, repeat for even more")
	pf.StringVarP(&flags.watchDirectory, "watch-directory", "w", "", "directory UxPlay writes the marker file to (default $HOME)")
	pf.StringVar(&flags.markerFile, "marker-file", core.MarkerFileName, "name of the marker file")
	pf.IntVarP(&flags.idleTimeout, "idle-timeout", "t", 900, "seconds of user inactivity before the display may be turned off")
	pf.StringVarP(&flags.i2cPath, "i2c-path", "i", "/dev/i2c-12", "I2C device of the display (env I2C_PATH)")
	pf.Uint16Var(&flags.i2cOn, "i2c-on", 0x01, "power register value for on")
	pf.Uint16Var(&flags.i2cOff, "i2c-off", 0x04, "power register value for off")
	pf.DurationVar(&flags.queryTimeout, "query-timeout", 0, "bound on every idle query and register access, 0 for none")
	pf.BoolVar(&flags.continueOnError, "continue-on-error", false, "keep running after a failed reconciliation")
	pf.StringVar(&flags.idleService, "idle-service", "mutter", "idle time service (mutter or freedesktop)")

	rootCmd.AddCommand(
		NewRunCommand(),
		NewStatusCommand(),
		NewPowerCommand(),
		NewIdleCommand(),
		NewMQTTPasswordCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}

// load builds the configuration from defaults, the config file, the
// environment and finally the flags that were set
func (f *flagValues) load(cmd *cobra.Command) (*core.Configuration, error) {
	cfg, err := core.LoadOrDefault(f.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	changed := cmd.Flags().Changed
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if changed("watch-directory") {
		cfg.WatchDirectory = f.watchDirectory
	}
	if changed("marker-file") {
		cfg.MarkerFile = f.markerFile
	}
	if changed("idle-timeout") {
		cfg.IdleTimeout = time.Duration(f.idleTimeout) * time.Second
	}
	if changed("i2c-path") {
		cfg.I2C.Path = f.i2cPath
	}
	if changed("i2c-on") {
		cfg.I2C.On = f.i2cOn
	}
	if changed("i2c-off") {
		cfg.I2C.Off = f.i2cOff
	}
	if changed("query-timeout") {
		cfg.QueryTimeout = f.queryTimeout
	}
	if changed("continue-on-error") {
		cfg.ContinueOnError = f.continueOnError
	}
	if changed("idle-service") {
		cfg.IdleService = f.idleService
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

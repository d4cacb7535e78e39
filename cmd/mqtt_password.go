package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.olrik.dev/autodisplay/internal/core"
	"go.olrik.dev/autodisplay/internal/keyring"
)

func NewMQTTPasswordCommand() *cobra.Command {
	passwordCmd := &cobra.Command{
		Use:     "mqtt-password",
		Aliases: []string{"passwd"},
		Short:   "Manage the stored MQTT broker password",
		Long: `Store or delete the MQTT broker password in the system keyring. The daemon
reads it when the mqtt block sets use_keyring = true.`,
	}

	// mqtt-password set command
	setCmd := &cobra.Command{
		Use:   "set [username]",
		Short: "Store the broker password for a user",
		Long:  `Store the broker password for a user. The username defaults to mqtt.username from the config file.`,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			username, err := usernameArg(args, core.Config)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}

			// Prompt for password with confirmation
			password, err := keyring.PromptAndConfirmPassword(username)
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to read password: %v", err))
				os.Exit(1)
			}

			if err := keyring.NewStore().SetPassword(username, password); err != nil {
				slog.Error(fmt.Sprintf("Failed to store password: %v", err))
				os.Exit(1)
			}

			slog.Info(fmt.Sprintf("Password stored securely for '%s'", username))
		},
	}

	// mqtt-password delete command
	deleteCmd := &cobra.Command{
		Use:     "delete [username]",
		Aliases: []string{"del", "remove", "rm"},
		Short:   "Delete the stored broker password for a user",
		Args:    cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			username, err := usernameArg(args, core.Config)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}

			if err := keyring.NewStore().DeletePassword(username); err != nil {
				slog.Error(fmt.Sprintf("Failed to delete password: %v", err))
				os.Exit(1)
			}

			slog.Info(fmt.Sprintf("Password deleted for '%s'", username))
		},
	}

	passwordCmd.AddCommand(setCmd, deleteCmd)
	return passwordCmd
}

// usernameArg returns the username given on the command line, falling
// back to the configured broker username
func usernameArg(args []string, cfg *core.Configuration) (string, error) {
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}
	if cfg != nil && cfg.MQTT != nil && cfg.MQTT.Username != "" {
		return cfg.MQTT.Username, nil
	}
	return "", fmt.Errorf("no username given and mqtt.username is not configured")
}

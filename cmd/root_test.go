package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.olrik.dev/autodisplay/internal/core"
)

// execute runs the root command with the version sub-command so only
// configuration loading is exercised
func execute(t *testing.T, args ...string) (*core.Configuration, error) {
	t.Helper()
	core.Config = nil

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs(append(args, "version"))
	err := root.Execute()
	return core.Config, err
}

func TestRootCommandDefaults(t *testing.T) {
	t.Setenv("I2C_PATH", "")
	configPath := t.TempDir()

	cfg, err := execute(t, "--config-path", configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ConfigPath != configPath {
		t.Errorf("expected config path %s, got %s", configPath, cfg.ConfigPath)
	}
	if cfg.IdleTimeout != 900*time.Second {
		t.Errorf("expected default idle timeout, got %v", cfg.IdleTimeout)
	}
	if cfg.I2C.Path != "/dev/i2c-12" {
		t.Errorf("expected default i2c path, got %s", cfg.I2C.Path)
	}
}

func TestRootCommandPrecedence(t *testing.T) {
	configPath := t.TempDir()
	content := `
idle_timeout = 120
i2c {
  path = "/dev/i2c-1"
  off  = 5
}
`
	if err := os.WriteFile(filepath.Join(configPath, core.ConfigFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("file over defaults", func(t *testing.T) {
		t.Setenv("I2C_PATH", "")
		cfg, err := execute(t, "--config-path", configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.IdleTimeout != 2*time.Minute || cfg.I2C.Path != "/dev/i2c-1" || cfg.I2C.Off != 5 {
			t.Errorf("expected file values, got timeout=%v path=%s off=%d", cfg.IdleTimeout, cfg.I2C.Path, cfg.I2C.Off)
		}
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("I2C_PATH", "/dev/i2c-7")
		cfg, err := execute(t, "--config-path", configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.I2C.Path != "/dev/i2c-7" {
			t.Errorf("expected env path, got %s", cfg.I2C.Path)
		}
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("I2C_PATH", "/dev/i2c-7")
		cfg, err := execute(t,
			"--config-path", configPath,
			"-i", "/dev/i2c-3",
			"-t", "30",
			"--i2c-off", "0x04",
			"--query-timeout", "2s",
			"--continue-on-error",
			"--idle-service", "freedesktop",
			"-w", "/srv/airplay",
			"-vv")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.I2C.Path != "/dev/i2c-3" {
			t.Errorf("expected flag path, got %s", cfg.I2C.Path)
		}
		if cfg.IdleTimeout != 30*time.Second {
			t.Errorf("expected 30s idle timeout, got %v", cfg.IdleTimeout)
		}
		if cfg.I2C.Off != 0x04 {
			t.Errorf("expected off=0x04, got 0x%02x", cfg.I2C.Off)
		}
		if cfg.QueryTimeout != 2*time.Second || !cfg.ContinueOnError || cfg.IdleService != "freedesktop" {
			t.Errorf("unexpected flag values: %+v", cfg)
		}
		if cfg.WatchDirectory != "/srv/airplay" || cfg.Verbose != 2 {
			t.Errorf("expected watch dir /srv/airplay and verbose 2, got %s and %d", cfg.WatchDirectory, cfg.Verbose)
		}
	})
}

func TestRootCommandRejectsInvalidConfig(t *testing.T) {
	tests := map[string][]string{
		"zero idle timeout":    {"-t", "0"},
		"on equals off":        {"--i2c-on", "4"},
		"unknown idle service": {"--idle-service", "kde"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, append([]string{"--config-path", t.TempDir()}, args...)...)
			if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
				t.Errorf("expected invalid configuration error, got %v", err)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"--config-path", t.TempDir(), "version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "autodisplay ") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestParsePowerArg(t *testing.T) {
	if on, err := parsePowerArg("on"); err != nil || !on {
		t.Errorf("expected on, got %v, %v", on, err)
	}
	if on, err := parsePowerArg("off"); err != nil || on {
		t.Errorf("expected off, got %v, %v", on, err)
	}
	if _, err := parsePowerArg("standby"); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestUsernameArg(t *testing.T) {
	cfg := core.GetDefaultConfig()

	if _, err := usernameArg(nil, cfg); err == nil {
		t.Error("expected error without username or mqtt config")
	}

	cfg.MQTT = &core.MQTTConfig{Broker: "tcp://b:1883", Username: "pi"}
	if got, err := usernameArg(nil, cfg); err != nil || got != "pi" {
		t.Errorf("expected configured username pi, got %q, %v", got, err)
	}
	if got, err := usernameArg([]string{"kodi"}, cfg); err != nil || got != "kodi" {
		t.Errorf("expected argument kodi, got %q, %v", got, err)
	}
}

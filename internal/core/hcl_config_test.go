package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadConfig(t *testing.T) {
	configPath := writeConfig(t, `# Test configuration
verbose = 1

watch_directory   = "/home/pi"
marker_file       = ".uxplay.dacp"
idle_timeout      = 600
query_timeout     = "5s"
continue_on_error = true
mirror_process    = "uxplay"

i2c {
  path    = "/dev/i2c-20"
  address = 55
  on      = 1
  off     = 5
}

power_on {
  attempts = 30
  delay    = "250ms"
}

idle {
  service = "freedesktop"
}

mqtt {
  broker      = "tcp://192.168.1.200:1883"
  topic       = "living-room/tv/state"
  username    = "pi"
  use_keyring = true
}
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load HCL config: %v", err)
	}

	if config.Verbose != 1 {
		t.Errorf("Expected verbose=1, got %v", config.Verbose)
	}
	if config.WatchDirectory != "/home/pi" {
		t.Errorf("Expected watch_directory='/home/pi', got '%v'", config.WatchDirectory)
	}
	if config.IdleTimeout != 600*time.Second {
		t.Errorf("Expected idle_timeout=600s, got %v", config.IdleTimeout)
	}
	if config.QueryTimeout != 5*time.Second {
		t.Errorf("Expected query_timeout=5s, got %v", config.QueryTimeout)
	}
	if !config.ContinueOnError {
		t.Error("Expected continue_on_error=true")
	}

	// Verify I2C settings
	if config.I2C.Path != "/dev/i2c-20" {
		t.Errorf("Expected i2c.path='/dev/i2c-20', got '%v'", config.I2C.Path)
	}
	if config.I2C.Address != 0x37 {
		t.Errorf("Expected i2c.address=0x37, got 0x%02x", config.I2C.Address)
	}
	if config.I2C.On != 1 || config.I2C.Off != 5 {
		t.Errorf("Expected i2c on/off=1/5, got %d/%d", config.I2C.On, config.I2C.Off)
	}

	// Verify retry settings
	if config.PowerOn.Attempts != 30 {
		t.Errorf("Expected power_on.attempts=30, got %v", config.PowerOn.Attempts)
	}
	if config.PowerOn.Delay != 250*time.Millisecond {
		t.Errorf("Expected power_on.delay=250ms, got %v", config.PowerOn.Delay)
	}

	if config.IdleService != "freedesktop" {
		t.Errorf("Expected idle.service='freedesktop', got '%v'", config.IdleService)
	}

	// Verify MQTT settings
	if config.MQTT == nil {
		t.Fatal("Expected mqtt to be configured")
	}
	if config.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("Expected mqtt.broker, got '%v'", config.MQTT.Broker)
	}
	if config.MQTT.Topic != "living-room/tv/state" {
		t.Errorf("Expected mqtt.topic, got '%v'", config.MQTT.Topic)
	}
	if !config.MQTT.UseKeyring || config.MQTT.Username != "pi" {
		t.Errorf("Expected keyring lookup for user pi, got %+v", config.MQTT)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected loaded config to be valid, got %v", err)
	}
}

func TestLoadConfigMinimal(t *testing.T) {
	configPath := writeConfig(t, `watch_directory = "/srv/airplay"`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load HCL config: %v", err)
	}

	defaults := GetDefaultConfig()
	if config.WatchDirectory != "/srv/airplay" {
		t.Errorf("Expected watch_directory='/srv/airplay', got '%v'", config.WatchDirectory)
	}
	if config.IdleTimeout != defaults.IdleTimeout {
		t.Errorf("Expected default idle timeout %v, got %v", defaults.IdleTimeout, config.IdleTimeout)
	}
	if config.I2C != defaults.I2C {
		t.Errorf("Expected default i2c settings %+v, got %+v", defaults.I2C, config.I2C)
	}
	if config.PowerOn != defaults.PowerOn {
		t.Errorf("Expected default retry settings %+v, got %+v", defaults.PowerOn, config.PowerOn)
	}
	if config.MQTT != nil {
		t.Error("Expected mqtt to be disabled without an mqtt block")
	}
}

func TestLoadConfigPartialRetryBlock(t *testing.T) {
	configPath := writeConfig(t, `
power_on {
  attempts = 5
}
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load HCL config: %v", err)
	}
	if config.PowerOn.Attempts != 5 {
		t.Errorf("Expected attempts=5, got %d", config.PowerOn.Attempts)
	}
	if config.PowerOn.Delay != 100*time.Millisecond {
		t.Errorf("Expected default delay 100ms, got %v", config.PowerOn.Delay)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "syntax error", content: `idle_timeout = `, wantErr: "failed to parse HCL config"},
		{name: "unknown attribute", content: `display = "hdmi"`, wantErr: "failed to parse HCL config"},
		{name: "bad query timeout", content: `query_timeout = "soon"`, wantErr: "query_timeout"},
		{name: "bad retry delay", content: "power_on {\n  delay = \"fast\"\n}", wantErr: "power_on delay"},
		{name: "register value out of range", content: "i2c {\n  on = 70000\n}", wantErr: "i2c on out of range"},
		{name: "mqtt without broker", content: "mqtt {\n  topic = \"x\"\n}", wantErr: "failed to parse HCL config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	config, err := LoadOrDefault(dir)
	if err != nil {
		t.Fatalf("Expected defaults without a config file, got %v", err)
	}
	if config.ConfigPath != dir {
		t.Errorf("Expected config path %s, got %s", dir, config.ConfigPath)
	}

	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`idle_timeout = 60`), 0644); err != nil {
		t.Fatal(err)
	}

	config, err = LoadOrDefault(dir)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.IdleTimeout != time.Minute {
		t.Errorf("Expected idle_timeout=60s from file, got %v", config.IdleTimeout)
	}
	if config.ConfigPath != dir {
		t.Errorf("Expected config path %s, got %s", dir, config.ConfigPath)
	}
}

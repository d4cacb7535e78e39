package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.olrik.dev/autodisplay/internal/ddc"
	"go.olrik.dev/autodisplay/internal/display"
)

const (
	BaseDirName    = ".config/autodisplay"
	ConfigFileName = "config.hcl"

	// MarkerFileName is created by UxPlay while an AirPlay client is connected.
	MarkerFileName = ".uxplay.dacp"
)

// Config is the global configuration instance
var Config *Configuration

// Configuration represents the complete autodisplay configuration
type Configuration struct {
	ConfigPath      string        // Directory containing config files
	Verbose         int           // Verbosity level
	WatchDirectory  string        // Directory that receives the marker file
	MarkerFile      string        // Marker file name inside WatchDirectory
	IdleTimeout     time.Duration // Idle time required before powering off on disconnect
	QueryTimeout    time.Duration // Bound on every bus and hardware call, 0 for none
	ContinueOnError bool          // Keep running after a failed reconciliation step
	IdleService     string        // Idle service name, see display.IdleServices
	MirrorProcess   string        // Process name reported by the status command
	I2C             I2CConfig
	PowerOn         RetryConfig
	MQTT            *MQTTConfig // nil when publishing is disabled
}

// I2CConfig locates the display on the I2C bus
type I2CConfig struct {
	Path    string // i2c-dev device node
	Address uint16 // DDC/CI slave address
	On      uint16 // Power register value meaning on
	Off     uint16 // Power register value meaning off
}

// RetryConfig bounds the power-on write
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// MQTTConfig enables publishing of power changes
type MQTTConfig struct {
	Broker     string
	Topic      string
	ClientID   string
	Username   string
	UseKeyring bool // Read the password for Username from the system keyring
}

// GetDefaultConfig returns a Configuration with default values
func GetDefaultConfig() *Configuration {
	homeDir, _ := os.UserHomeDir()
	retry := display.DefaultRetryPolicy()

	return &Configuration{
		ConfigPath:     filepath.Join(homeDir, BaseDirName),
		WatchDirectory: homeDir,
		MarkerFile:     MarkerFileName,
		IdleTimeout:    900 * time.Second,
		IdleService:    "mutter",
		MirrorProcess:  "uxplay",
		I2C: I2CConfig{
			Path:    "/dev/i2c-12",
			Address: ddc.DefaultAddress,
			On:      0x01,
			Off:     0x04,
		},
		PowerOn: RetryConfig{
			Attempts: retry.Attempts,
			Delay:    retry.Delay,
		},
	}
}

// ApplyEnv overrides settings from the environment. lookup is normally os.LookupEnv.
func (c *Configuration) ApplyEnv(lookup func(string) (string, bool)) {
	if path, ok := lookup("I2C_PATH"); ok && path != "" {
		c.I2C.Path = path
	}
}

// Validate reports the first invalid setting
func (c *Configuration) Validate() error {
	if c.WatchDirectory == "" {
		return fmt.Errorf("watch_directory must be set")
	}
	if c.MarkerFile == "" || strings.ContainsRune(c.MarkerFile, os.PathSeparator) {
		return fmt.Errorf("marker_file must be a plain file name, got %q", c.MarkerFile)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got %v", c.IdleTimeout)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("query_timeout must not be negative, got %v", c.QueryTimeout)
	}
	if c.I2C.Path == "" {
		return fmt.Errorf("i2c path must be set")
	}
	if c.I2C.On == c.I2C.Off {
		return fmt.Errorf("i2c on and off values must differ, both are 0x%02x", c.I2C.On)
	}
	if c.PowerOn.Attempts < 1 {
		return fmt.Errorf("power_on attempts must be at least 1, got %d", c.PowerOn.Attempts)
	}
	if c.PowerOn.Delay < 0 {
		return fmt.Errorf("power_on delay must not be negative, got %v", c.PowerOn.Delay)
	}
	if _, ok := display.IdleServices[c.IdleService]; !ok {
		return fmt.Errorf("idle service must be one of %s, got %q",
			strings.Join(display.IdleServiceNames(), ", "), c.IdleService)
	}
	if c.MQTT != nil && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt broker must be set when the mqtt block is present")
	}
	if c.MQTT != nil && c.MQTT.UseKeyring && c.MQTT.Username == "" {
		return fmt.Errorf("mqtt username is required to look up the password in the keyring")
	}
	return nil
}

// PowerConfig returns the display power configuration
func (c *Configuration) PowerConfig() display.PowerConfig {
	return display.PowerConfig{
		Path:    c.I2C.Path,
		Address: c.I2C.Address,
		On:      c.I2C.On,
		Off:     c.I2C.Off,
	}
}

// RetryPolicy returns the power-on retry policy
func (c *Configuration) RetryPolicy() display.RetryPolicy {
	return display.RetryPolicy{Attempts: c.PowerOn.Attempts, Delay: c.PowerOn.Delay}
}

// ConfigFile returns the path of the HCL config file
func (c *Configuration) ConfigFile() string {
	return filepath.Join(c.ConfigPath, ConfigFileName)
}

// ConfigExists checks if a config file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return err == nil
}

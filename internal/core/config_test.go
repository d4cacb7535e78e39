package core

import (
	"strings"
	"testing"
	"time"
)

func TestGetDefaultConfig(t *testing.T) {
	config := GetDefaultConfig()

	if config.MarkerFile != ".uxplay.dacp" {
		t.Errorf("Expected marker file .uxplay.dacp, got %s", config.MarkerFile)
	}
	if config.IdleTimeout != 900*time.Second {
		t.Errorf("Expected idle timeout 900s, got %v", config.IdleTimeout)
	}
	if config.I2C.Path != "/dev/i2c-12" {
		t.Errorf("Expected /dev/i2c-12, got %s", config.I2C.Path)
	}
	if config.I2C.On != 0x01 || config.I2C.Off != 0x04 {
		t.Errorf("Expected on/off 0x01/0x04, got 0x%02x/0x%02x", config.I2C.On, config.I2C.Off)
	}
	if config.PowerOn.Attempts != 20 || config.PowerOn.Delay != 100*time.Millisecond {
		t.Errorf("Expected 20 attempts at 100ms, got %+v", config.PowerOn)
	}
	if config.QueryTimeout != 0 {
		t.Errorf("Expected no query timeout by default, got %v", config.QueryTimeout)
	}
	if config.ContinueOnError {
		t.Error("Expected continue_on_error to default to false")
	}
	if config.MQTT != nil {
		t.Error("Expected mqtt to be disabled by default")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{"I2C_PATH": "/dev/i2c-3"}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	config := GetDefaultConfig()
	config.ApplyEnv(lookup)
	if config.I2C.Path != "/dev/i2c-3" {
		t.Errorf("Expected I2C_PATH to override path, got %s", config.I2C.Path)
	}

	env["I2C_PATH"] = ""
	config = GetDefaultConfig()
	config.ApplyEnv(lookup)
	if config.I2C.Path != "/dev/i2c-12" {
		t.Errorf("Expected empty I2C_PATH to be ignored, got %s", config.I2C.Path)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Configuration {
		c := GetDefaultConfig()
		c.WatchDirectory = "/home/pi"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Configuration)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Configuration) {}},
		{name: "empty watch directory", mutate: func(c *Configuration) { c.WatchDirectory = "" }, wantErr: "watch_directory"},
		{name: "marker with path", mutate: func(c *Configuration) { c.MarkerFile = "a/b" }, wantErr: "marker_file"},
		{name: "zero idle timeout", mutate: func(c *Configuration) { c.IdleTimeout = 0 }, wantErr: "idle_timeout"},
		{name: "negative query timeout", mutate: func(c *Configuration) { c.QueryTimeout = -time.Second }, wantErr: "query_timeout"},
		{name: "empty i2c path", mutate: func(c *Configuration) { c.I2C.Path = "" }, wantErr: "i2c path"},
		{name: "same on and off", mutate: func(c *Configuration) { c.I2C.Off = c.I2C.On }, wantErr: "must differ"},
		{name: "zero attempts", mutate: func(c *Configuration) { c.PowerOn.Attempts = 0 }, wantErr: "attempts"},
		{name: "negative delay", mutate: func(c *Configuration) { c.PowerOn.Delay = -1 }, wantErr: "delay"},
		{name: "unknown idle service", mutate: func(c *Configuration) { c.IdleService = "kde" }, wantErr: "freedesktop, mutter"},
		{name: "mqtt without broker", mutate: func(c *Configuration) { c.MQTT = &MQTTConfig{} }, wantErr: "mqtt broker"},
		{
			name:    "keyring without username",
			mutate:  func(c *Configuration) { c.MQTT = &MQTTConfig{Broker: "tcp://b:1883", UseKeyring: true} },
			wantErr: "username",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPowerConfigAndRetryPolicy(t *testing.T) {
	c := GetDefaultConfig()
	c.I2C = I2CConfig{Path: "/dev/i2c-1", Address: 0x37, On: 1, Off: 4}
	c.PowerOn = RetryConfig{Attempts: 7, Delay: time.Second}

	pc := c.PowerConfig()
	if pc.Path != "/dev/i2c-1" || pc.Address != 0x37 || pc.On != 1 || pc.Off != 4 {
		t.Errorf("Unexpected power config: %+v", pc)
	}

	rp := c.RetryPolicy()
	if rp.Attempts != 7 || rp.Delay != time.Second {
		t.Errorf("Unexpected retry policy: %+v", rp)
	}
}

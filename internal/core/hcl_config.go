package core

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// HCL parsing structs

type hclConfig struct {
	Verbose         int       `hcl:"verbose,optional"`
	WatchDirectory  string    `hcl:"watch_directory,optional"`
	MarkerFile      string    `hcl:"marker_file,optional"`
	IdleTimeout     *int      `hcl:"idle_timeout,optional"`
	QueryTimeout    string    `hcl:"query_timeout,optional"`
	ContinueOnError *bool     `hcl:"continue_on_error,optional"`
	MirrorProcess   string    `hcl:"mirror_process,optional"`
	I2C             *hclI2C   `hcl:"i2c,block"`
	PowerOn         *hclRetry `hcl:"power_on,block"`
	Idle            *hclIdle  `hcl:"idle,block"`
	MQTT            *hclMQTT  `hcl:"mqtt,block"`
}

type hclI2C struct {
	Path    string `hcl:"path,optional"`
	Address *int   `hcl:"address,optional"`
	On      *int   `hcl:"on,optional"`
	Off     *int   `hcl:"off,optional"`
}

type hclRetry struct {
	Attempts int    `hcl:"attempts,optional"`
	Delay    string `hcl:"delay,optional"`
}

type hclIdle struct {
	Service string `hcl:"service,optional"`
}

type hclMQTT struct {
	Broker     string `hcl:"broker"`
	Topic      string `hcl:"topic,optional"`
	ClientID   string `hcl:"client_id,optional"`
	Username   string `hcl:"username,optional"`
	UseKeyring *bool  `hcl:"use_keyring,optional"`
}

// LoadConfig loads the HCL configuration file on top of the defaults
func LoadConfig(filename string) (*Configuration, error) {
	var hclCfg hclConfig

	err := hclsimple.DecodeFile(filename, nil, &hclCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HCL config: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := hclCfg.apply(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return cfg, nil
}

func (h *hclConfig) apply(cfg *Configuration) error {
	cfg.Verbose = h.Verbose
	if h.WatchDirectory != "" {
		cfg.WatchDirectory = h.WatchDirectory
	}
	if h.MarkerFile != "" {
		cfg.MarkerFile = h.MarkerFile
	}
	if h.IdleTimeout != nil {
		cfg.IdleTimeout = time.Duration(*h.IdleTimeout) * time.Second
	}
	if h.QueryTimeout != "" {
		d, err := time.ParseDuration(h.QueryTimeout)
		if err != nil {
			return fmt.Errorf("query_timeout: %w", err)
		}
		cfg.QueryTimeout = d
	}
	if h.ContinueOnError != nil {
		cfg.ContinueOnError = *h.ContinueOnError
	}
	if h.MirrorProcess != "" {
		cfg.MirrorProcess = h.MirrorProcess
	}

	// Convert I2C settings
	if h.I2C != nil {
		if h.I2C.Path != "" {
			cfg.I2C.Path = h.I2C.Path
		}
		for _, field := range []struct {
			name  string
			value *int
			dst   *uint16
		}{
			{"address", h.I2C.Address, &cfg.I2C.Address},
			{"on", h.I2C.On, &cfg.I2C.On},
			{"off", h.I2C.Off, &cfg.I2C.Off},
		} {
			if field.value == nil {
				continue
			}
			if *field.value < 0 || *field.value > 0xFFFF {
				return fmt.Errorf("i2c %s out of range: %d", field.name, *field.value)
			}
			*field.dst = uint16(*field.value)
		}
	}

	// Convert power-on retry settings, zero values keep the defaults
	if h.PowerOn != nil {
		if h.PowerOn.Attempts != 0 {
			cfg.PowerOn.Attempts = h.PowerOn.Attempts
		}
		if h.PowerOn.Delay != "" {
			d, err := time.ParseDuration(h.PowerOn.Delay)
			if err != nil {
				return fmt.Errorf("power_on delay: %w", err)
			}
			cfg.PowerOn.Delay = d
		}
	}

	if h.Idle != nil && h.Idle.Service != "" {
		cfg.IdleService = h.Idle.Service
	}

	if h.MQTT != nil {
		cfg.MQTT = &MQTTConfig{
			Broker:   h.MQTT.Broker,
			Topic:    h.MQTT.Topic,
			ClientID: h.MQTT.ClientID,
			Username: h.MQTT.Username,
		}
		if h.MQTT.UseKeyring != nil {
			cfg.MQTT.UseKeyring = *h.MQTT.UseKeyring
		}
	}

	return nil
}

// LoadOrDefault loads configPath/config.hcl when it exists, otherwise the defaults
func LoadOrDefault(configPath string) (*Configuration, error) {
	cfg := GetDefaultConfig()
	if configPath != "" {
		cfg.ConfigPath = configPath
	}

	file := cfg.ConfigFile()
	if !ConfigExists(file) {
		return cfg, nil
	}

	loaded, err := LoadConfig(file)
	if err != nil {
		return nil, err
	}
	loaded.ConfigPath = cfg.ConfigPath
	return loaded, nil
}

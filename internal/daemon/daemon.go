package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"go.olrik.dev/autodisplay/internal/core"
	"go.olrik.dev/autodisplay/internal/display"
	"go.olrik.dev/autodisplay/internal/keyring"
	"go.olrik.dev/autodisplay/internal/mqtt"
	"go.olrik.dev/autodisplay/internal/reconcile"
	"go.olrik.dev/autodisplay/internal/watcher"
)

// Daemon runs the reconciliation loop until it is stopped or fails.
type Daemon struct {
	config *core.Configuration
	logger *slog.Logger

	openDisplay   func(ctx context.Context) (reconcile.Display, func(), error)
	openPublisher func(cfg *core.MQTTConfig) (mqtt.Publisher, error)
	watch         func(ctx context.Context, dir, marker string, logger *slog.Logger) (<-chan watcher.Result, error)
}

// New creates a daemon for cfg
func New(cfg *core.Configuration, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Daemon{
		config: cfg,
		logger: logger,
		watch:  watcher.Watch,
	}
	d.openDisplay = func(ctx context.Context) (reconcile.Display, func(), error) {
		return OpenDisplay(ctx, d.config, d.logger)
	}
	d.openPublisher = func(cfg *core.MQTTConfig) (mqtt.Publisher, error) {
		return OpenPublisher(cfg, keyring.NewStore())
	}
	return d
}

// Run blocks until SIGINT/SIGTERM, ctx ends or a fatal error occurs.
// A clean shutdown returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := d.config
	d.logger.Info("Starting autodisplay",
		"version", core.Version,
		"watch_directory", cfg.WatchDirectory,
		"marker", cfg.MarkerFile,
		"idle_timeout", cfg.IdleTimeout,
		"i2c_path", cfg.I2C.Path,
		"idle_service", cfg.IdleService)

	events, err := d.watch(ctx, cfg.WatchDirectory, cfg.MarkerFile, d.logger)
	if err != nil {
		d.logger.Error("Failed to watch directory", "operation", "watch_setup", "error", err)
		return err
	}

	ctrl, closeDisplay, err := d.openDisplay(ctx)
	if err != nil {
		d.logger.Error("Failed to set up display controller", "operation", "bus_setup", "error", err)
		return err
	}
	defer closeDisplay()

	loop := &reconcile.Loop{
		Display:         ctrl,
		IdleTimeout:     cfg.IdleTimeout,
		ContinueOnError: cfg.ContinueOnError,
		Logger:          d.logger,
	}

	if cfg.MQTT != nil {
		pub, err := d.openPublisher(cfg.MQTT)
		if err != nil {
			d.logger.Warn("MQTT publishing disabled", "operation", "mqtt_connect", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			defer pub.Close()
			loop.OnTransition = mqtt.Forward(pub, d.logger)
			d.logger.Info("Publishing power changes", "broker", cfg.MQTT.Broker)
		}
	}

	if err := loop.Run(ctx, events); err != nil {
		return err
	}

	d.logger.Info("Shutting down")
	return nil
}

// OpenDisplay connects to the session bus and builds a display controller.
// The returned function releases the hardware worker and the bus connection.
func OpenDisplay(ctx context.Context, cfg *core.Configuration, logger *slog.Logger) (*display.Controller, func(), error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to session bus: %w", err)
	}

	ctrl, closeHardware, err := display.New(ctx, conn, cfg.PowerConfig(), display.Options{
		IdleService: cfg.IdleService,
		Retry:       cfg.RetryPolicy(),
		Timeout:     cfg.QueryTimeout,
	})
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	logger.Debug("Display controller ready", "i2c_path", cfg.I2C.Path, "idle_service", cfg.IdleService)
	return ctrl, func() {
		closeHardware()
		conn.Close()
	}, nil
}

// PasswordSource looks up broker passwords, normally a *keyring.Store
type PasswordSource interface {
	GetPassword(username string) (string, error)
}

// OpenPublisher connects to the broker described by cfg
func OpenPublisher(cfg *core.MQTTConfig, passwords PasswordSource) (mqtt.Publisher, error) {
	opts, err := publisherOptions(cfg, passwords)
	if err != nil {
		return nil, err
	}
	return mqtt.NewRealPublisher(opts)
}

func publisherOptions(cfg *core.MQTTConfig, passwords PasswordSource) (mqtt.Options, error) {
	opts := mqtt.Options{
		Broker:   cfg.Broker,
		Topic:    cfg.Topic,
		ClientID: cfg.ClientID,
		Username: cfg.Username,
	}
	if !cfg.UseKeyring {
		return opts, nil
	}

	password, err := passwords.GetPassword(cfg.Username)
	if err != nil {
		return opts, fmt.Errorf("mqtt password for '%s': %w", cfg.Username, err)
	}
	if password == "" {
		return opts, fmt.Errorf("no mqtt password stored for '%s', run 'autodisplay mqtt-password set %s'", cfg.Username, cfg.Username)
	}
	opts.Password = password
	return opts, nil
}

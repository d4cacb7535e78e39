package display

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"go.olrik.dev/autodisplay/internal/ddc"
)

// PowerHardware is implemented by Hardware.
type PowerHardware interface {
	ReadPower(ctx context.Context) (bool, error)
	WritePower(ctx context.Context, on bool) error
}

// Controller answers "is the display on", "how long has the user been
// idle" and switches the display. It caches nothing.
type Controller struct {
	idle    IdleSource
	power   PowerHardware
	timeout time.Duration
}

// Options configures New.
type Options struct {
	IdleService string
	Retry       RetryPolicy
	Timeout     time.Duration
	Open        ddc.Opener
}

// New builds a Controller from a live session bus connection and the power
// configuration. The returned close function stops the hardware worker.
func New(ctx context.Context, conn *dbus.Conn, config PowerConfig, opts Options) (*Controller, func(), error) {
	idle, err := NewIdleMonitor(ctx, conn, opts.IdleService)
	if err != nil {
		return nil, nil, err
	}

	hw := NewHardware(config, opts.Retry, opts.Open, nil)
	return NewController(idle, hw, opts.Timeout), hw.Close, nil
}

// NewController composes an idle source and power hardware. A zero timeout
// lets every call run for as long as it takes.
func NewController(idle IdleSource, power PowerHardware, timeout time.Duration) *Controller {
	return &Controller{idle: idle, power: power, timeout: timeout}
}

// IdleTime returns how long the user has been idle.
func (c *Controller) IdleTime(ctx context.Context) (time.Duration, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	d, err := c.idle.IdleTime(ctx)
	return d, asTimeout(ctx, "idle time", err)
}

// Power returns whether the display is currently on.
func (c *Controller) Power(ctx context.Context) (bool, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	on, err := c.power.ReadPower(ctx)
	return on, asTimeout(ctx, "read power", err)
}

// SetPower switches the display on or off.
func (c *Controller) SetPower(ctx context.Context, on bool) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	return asTimeout(ctx, "write power", c.power.WritePower(ctx, on))
}

func (c *Controller) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// asTimeout tags errors caused by the per-call deadline with ErrTimeout.
func asTimeout(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
	}
	return err
}

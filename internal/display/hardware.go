package display

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.olrik.dev/autodisplay/internal/ddc"
)

// Hardware reads and writes the display power register. Every call opens
// its own device handle and closes it before returning, and all device I/O
// runs on a dedicated worker thread so callers never block their own
// goroutine on the bus.
type Hardware struct {
	config PowerConfig
	retry  RetryPolicy
	open   ddc.Opener
	worker *worker
	logger *slog.Logger
}

// NewHardware creates a Hardware for config. A nil open uses ddc.Open and a
// nil logger uses slog.Default. Close must be called to stop the worker.
func NewHardware(config PowerConfig, retry RetryPolicy, open ddc.Opener, logger *slog.Logger) *Hardware {
	if open == nil {
		open = ddc.Open
	}
	if logger == nil {
		logger = slog.Default()
	}
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}

	return &Hardware{
		config: config,
		retry:  retry,
		open:   open,
		worker: newWorker(),
		logger: logger,
	}
}

// Close stops the worker. Calls made afterwards fail with ErrClosed.
func (h *Hardware) Close() {
	h.worker.close()
}

// ReadPower reports whether the display is on.
func (h *Hardware) ReadPower(ctx context.Context) (bool, error) {
	value, err := offload(ctx, h.worker, func() (uint16, error) {
		dev, err := h.open(h.config.Path, h.config.Address)
		if err != nil {
			return 0, err
		}
		defer dev.Close()

		v, err := dev.GetVCP(ddc.FeaturePowerMode)
		if err != nil {
			return 0, err
		}
		return v.Current, nil
	})
	if err != nil {
		return false, fmt.Errorf("read power register: %w", err)
	}

	switch value {
	case h.config.On:
		return true, nil
	case h.config.Off:
		return false, nil
	default:
		return false, fmt.Errorf("%w: 0x%x", ErrUnexpectedValue, value)
	}
}

// WritePower switches the display on or off. Powering on is retried
// according to the retry policy and fails only after the last attempt.
// Powering off is a single attempt.
func (h *Hardware) WritePower(ctx context.Context, on bool) error {
	value, attempts := h.config.Off, 1
	if on {
		value, attempts = h.config.On, h.retry.Attempts
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = h.writeOnce(ctx, value)
		if err == nil {
			if attempt > 1 {
				h.logger.Debug("Power write accepted after retry", "attempt", attempt, "value", value)
			}
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("write power register: %w", ctx.Err())
		}
		if attempt == attempts {
			break
		}

		h.logger.Debug("Power write rejected, retrying",
			"attempt", attempt,
			"attempts", attempts,
			"delay", h.retry.Delay,
			"error", err)

		if err := sleepCtx(ctx, h.retry.Delay); err != nil {
			return fmt.Errorf("write power register: %w", err)
		}
	}

	return fmt.Errorf("%w after %d attempt(s): %w", ErrWriteFailed, attempts, err)
}

func (h *Hardware) writeOnce(ctx context.Context, value uint16) error {
	_, err := offload(ctx, h.worker, func() (struct{}, error) {
		dev, err := h.open(h.config.Path, h.config.Address)
		if err != nil {
			return struct{}{}, err
		}
		defer dev.Close()

		return struct{}{}, dev.SetVCP(ddc.FeaturePowerMode, value)
	})
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.olrik.dev/autodisplay/internal/watcher"
)

// Display is implemented by display.Controller.
type Display interface {
	IdleTime(ctx context.Context) (time.Duration, error)
	Power(ctx context.Context) (bool, error)
	SetPower(ctx context.Context, on bool) error
}

// Transition describes a power change that was applied to the display.
type Transition struct {
	Event  watcher.Event
	Action Action
	Idle   time.Duration
	Time   time.Time
}

// Loop consumes connection events one at a time.
type Loop struct {
	Display     Display
	IdleTimeout time.Duration

	// ContinueOnError keeps the loop running after a failed step instead
	// of returning the step's error. Stream errors always stop the loop.
	ContinueOnError bool

	// OnTransition, when set, is called after every successful power change.
	OnTransition func(Transition)

	Logger *slog.Logger
}

// Run reconciles events until the stream closes, ctx ends or a fatal
// error occurs. It returns nil on a clean stop.
func (l *Loop) Run(ctx context.Context, events <-chan watcher.Result) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case result, ok := <-events:
			if !ok {
				logger.Info("Event stream closed")
				return nil
			}

			if result.Err != nil {
				logger.Error("Error while watching directory", "operation", "watch", "error", result.Err)
				return result.Err
			}

			if err := l.step(ctx, logger, result.Event); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("Reconciliation failed",
					"id", result.Event.ID,
					"state", result.Event.State.String(),
					"error", err)
				if !l.ContinueOnError {
					return err
				}
			}
		}
	}
}

func (l *Loop) step(ctx context.Context, logger *slog.Logger, event watcher.Event) error {
	idle, err := l.Display.IdleTime(ctx)
	if err != nil {
		return fmt.Errorf("idle time: %w", err)
	}

	powered, err := l.Display.Power(ctx)
	if err != nil {
		return fmt.Errorf("power state: %w", err)
	}

	action := Decide(powered, event.State, idle, l.IdleTimeout)
	logger.Debug("Reconciling",
		"id", event.ID,
		"state", event.State.String(),
		"powered", powered,
		"idle", idle.Round(time.Second),
		"timeout", l.IdleTimeout,
		"action", action.String())

	switch action {
	case PowerOn:
		logger.Info("User connected, turning display on", "id", event.ID)
		if err := l.Display.SetPower(ctx, true); err != nil {
			return fmt.Errorf("power on: %w", err)
		}
	case PowerOff:
		logger.Info("User disconnected, turning display off", "id", event.ID, "idle", idle.Round(time.Second))
		if err := l.Display.SetPower(ctx, false); err != nil {
			return fmt.Errorf("power off: %w", err)
		}
	default:
		return nil
	}

	if l.OnTransition != nil {
		l.OnTransition(Transition{Event: event, Action: action, Idle: idle, Time: time.Now()})
	}
	return nil
}

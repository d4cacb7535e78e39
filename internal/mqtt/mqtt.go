// Package mqtt publishes display power changes to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"log/slog"
	"time"

	"go.olrik.dev/autodisplay/internal/reconcile"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "autodisplay/display/state"

// Publisher publishes power transitions.
type Publisher interface {
	// Publish sends a transition to the broker. Errors are reported to
	// the caller but must not stop the daemon.
	Publish(tr reconcile.Transition) error

	// Close disconnects from the broker.
	Close() error
}

// Payload is the JSON document published for each transition.
type Payload struct {
	Display DisplayPayload `json:"display"`
}

// DisplayPayload holds the transition details.
type DisplayPayload struct {
	Timestamp   string `json:"timestamp"`
	Power       string `json:"power"`
	Trigger     string `json:"trigger"`
	EventID     string `json:"event_id"`
	IdleSeconds int64  `json:"idle_seconds"`
}

// FormatPayload renders the payload for tr.
func FormatPayload(tr reconcile.Transition) ([]byte, error) {
	power := "OFF"
	if tr.Action == reconcile.PowerOn {
		power = "ON"
	}

	return json.Marshal(Payload{
		Display: DisplayPayload{
			Timestamp:   tr.Time.UTC().Format(time.RFC3339),
			Power:       power,
			Trigger:     tr.Event.State.String(),
			EventID:     tr.Event.ID,
			IdleSeconds: int64(tr.Idle / time.Second),
		},
	})
}

// Forward returns a reconcile.Loop OnTransition callback that publishes
// through p and logs, rather than returns, publish failures.
func Forward(p Publisher, logger *slog.Logger) func(reconcile.Transition) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(tr reconcile.Transition) {
		if err := p.Publish(tr); err != nil {
			logger.Warn("Failed to publish power change", "operation", "mqtt_publish", "id", tr.Event.ID, "error", err)
			return
		}
		logger.Debug("Published power change", "id", tr.Event.ID, "action", tr.Action.String())
	}
}

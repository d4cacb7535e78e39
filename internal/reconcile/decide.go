// Package reconcile drives the display's power state from connection events.
//
// Every event is handled in isolation: the idle time and the power state are
// queried afresh, Decide picks an action and the action is applied before
// the next event is read.
package reconcile

import (
	"time"

	"go.olrik.dev/autodisplay/internal/watcher"
)

// Action is what a reconciliation step does to the display.
type Action int

const (
	NoOp Action = iota
	PowerOn
	PowerOff
)

func (a Action) String() string {
	switch a {
	case NoOp:
		return "none"
	case PowerOn:
		return "power_on"
	case PowerOff:
		return "power_off"
	default:
		return "unknown"
	}
}

// Decide maps the observed power state, the connection event and the idle
// time to an action. A connect always wakes a dark display. A disconnect
// only turns it off once the user has been idle for longer than timeout,
// so a quick reconnect or someone using the machine keeps it on.
func Decide(powered bool, state watcher.ConnectionState, idle, timeout time.Duration) Action {
	switch {
	case !powered && state == watcher.Connected:
		return PowerOn
	case powered && state == watcher.Disconnected && idle > timeout:
		return PowerOff
	default:
		return NoOp
	}
}

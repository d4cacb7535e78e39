// Package watcher turns the appearance and removal of a marker file into a
// stream of connect and disconnect events.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// QueueSize is the number of events buffered between the watcher and its consumer.
const QueueSize = 16

// ErrWatch wraps errors reported by the notification subsystem.
var ErrWatch = errors.New("directory watch failed")

// ConnectionState is the mirroring client's presence as signalled by the marker file.
type ConnectionState int

const (
	Connected ConnectionState = iota
	Disconnected
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a single connection change.
type Event struct {
	ID    string
	State ConnectionState
	Path  string
	Time  time.Time
}

// Result is one item of the stream: either an Event or an error.
type Result struct {
	Event Event
	Err   error
}

// Translate maps a filesystem notification to a connection state. Only
// creation and removal of a file named exactly marker count; everything
// else reports false.
func Translate(ev fsnotify.Event, marker string) (ConnectionState, bool) {
	if filepath.Base(ev.Name) != marker {
		return 0, false
	}

	switch {
	case ev.Has(fsnotify.Create):
		return Connected, true
	case ev.Has(fsnotify.Remove):
		return Disconnected, true
	default:
		return 0, false
	}
}

// Watch starts watching dir (not its subdirectories) for the marker file.
// Failure to install the watch is returned immediately. The returned
// channel is closed once ctx is done or the notification source closes.
// Sends block when the queue is full, so no transition is ever dropped.
func Watch(ctx context.Context, dir, marker string, logger *slog.Logger) (<-chan Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	out := make(chan Result, QueueSize)

	go func() {
		defer close(out)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}

				state, ok := Translate(ev, marker)
				if !ok {
					continue
				}

				event := Event{
					ID:    uuid.NewString(),
					State: state,
					Path:  ev.Name,
					Time:  time.Now(),
				}
				logger.Debug("Marker file event", "id", event.ID, "state", state.String(), "op", ev.Op.String())

				if !send(ctx, out, Result{Event: event}) {
					return
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if !send(ctx, out, Result{Err: fmt.Errorf("%w: %w", ErrWatch, err)}) {
					return
				}
			}
		}
	}()

	logger.Info("Watching for marker file", "directory", dir, "marker", marker)
	return out, nil
}

func send(ctx context.Context, out chan<- Result, r Result) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

package display

import (
	"context"
	"runtime"
	"sync"
)

// worker runs blocking device calls on one dedicated OS thread, one at a
// time. Callers wait for the result but can stop waiting when their context
// ends; the job itself always runs to completion so no device handle is
// ever abandoned half-open.
type worker struct {
	jobs      chan func()
	done      chan struct{}
	closeOnce sync.Once
}

func newWorker() *worker {
	w := &worker{
		jobs: make(chan func()),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *worker) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-w.done:
			return
		case job := <-w.jobs:
			job()
		}
	}
}

func (w *worker) close() {
	w.closeOnce.Do(func() { close(w.done) })
}

type result[T any] struct {
	value T
	err   error
}

// offload submits fn to the worker and waits for its result.
func offload[T any](ctx context.Context, w *worker, fn func() (T, error)) (T, error) {
	var zero T
	out := make(chan result[T], 1)
	job := func() {
		v, err := fn()
		out <- result[T]{value: v, err: err}
	}

	select {
	case <-w.done:
		return zero, ErrClosed
	default:
	}

	select {
	case w.jobs <- job:
	case <-w.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-out:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

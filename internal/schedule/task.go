// Package schedule runs a function at a fixed rate until stopped.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrRunning         = errors.New("task already running")
	ErrInvalidInterval = errors.New("interval must be positive")
)

// Task is a periodic job. Stop returns only once the last invocation has returned,
// so callers may rebuild any state the job touches right after it.
type Task struct {
	interval time.Duration
	fn       func(context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped task.
func New(interval time.Duration, fn func(context.Context)) *Task {
	return &Task{interval: interval, fn: fn}
}

// Interval returns the tick period.
func (t *Task) Interval() time.Duration {
	return t.interval
}

// Start launches the ticking goroutine. It ends when Stop is called or ctx is done.
func (t *Task) Start(ctx context.Context) error {
	if t.interval <= 0 {
		return ErrInvalidInterval
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != nil {
		select {
		case <-t.done:
			// Previous run ended on its own context.
		default:
			return ErrRunning
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	t.cancel = cancel
	t.done = done

	go t.loop(ctx, done)

	return nil
}

func (t *Task) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A stop request that races with the tick wins.
			if ctx.Err() != nil {
				return
			}

			t.fn(ctx)
		}
	}
}

// Stop cancels the task and waits for the running invocation, if any. Safe to call repeatedly.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Running reports whether the ticking goroutine is alive.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done == nil {
		return false
	}

	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

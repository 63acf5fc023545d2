package suite

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

const maxWaitDuration = 10 * time.Second

type Suite struct {
	*testing.T
	Logger *slog.Logger

	Scheduler *ManualScheduler
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(func() {
		cancel()
	})

	logger := slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return ctx, &Suite{
		T:         t,
		Logger:    logger,
		Scheduler: &ManualScheduler{},
	}
}

// ManualScheduler records deferred calls and runs them only when a test says so.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*task
}

type task struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (that *ManualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	scheduled := &task{delay: d, fn: f}
	that.tasks = append(that.tasks, scheduled)

	return func() bool {
		that.mu.Lock()
		defer that.mu.Unlock()

		if scheduled.stopped || scheduled.fired {
			return false
		}
		scheduled.stopped = true

		return true
	}
}

// Pending returns the number of calls that are neither stopped nor fired.
func (that *ManualScheduler) Pending() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	pending := 0
	for _, scheduled := range that.tasks {
		if !scheduled.stopped && !scheduled.fired {
			pending++
		}
	}

	return pending
}

// Delays returns the delay of every call scheduled so far.
func (that *ManualScheduler) Delays() []time.Duration {
	that.mu.Lock()
	defer that.mu.Unlock()

	delays := make([]time.Duration, 0, len(that.tasks))
	for _, scheduled := range that.tasks {
		delays = append(delays, scheduled.delay)
	}

	return delays
}

// Elapse runs every pending call, as if all delays had passed.
func (that *ManualScheduler) Elapse() int {
	return that.run(false)
}

// ElapseIgnoringStop also runs stopped calls. It reproduces a timer that had
// already fired when Stop was called.
func (that *ManualScheduler) ElapseIgnoringStop() int {
	return that.run(true)
}

func (that *ManualScheduler) run(ignoreStop bool) int {
	that.mu.Lock()
	due := make([]func(), 0, len(that.tasks))
	for _, scheduled := range that.tasks {
		if scheduled.fired || (scheduled.stopped && !ignoreStop) {
			continue
		}
		scheduled.fired = true
		due = append(due, scheduled.fn)
	}
	that.mu.Unlock()

	for _, fn := range due {
		fn()
	}

	return len(due)
}

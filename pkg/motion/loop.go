package motion

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Cleanup cancels a scheduled chain. Calling it more than once is safe.
type Cleanup func()

// Loop serializes all animation work onto one goroutine, the way a
// browser's UI thread serializes script execution. Handlers never run
// concurrently, so document mutations need no locks.
type Loop struct {
	dispatchCh chan func()

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	logger *slog.Logger
}

// NewLoop creates and starts a dispatch loop.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		dispatchCh: make(chan func(), 256),
		done:       make(chan struct{}),
		logger:     logger.With("component", "motion"),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case fn := <-l.dispatchCh:
			l.safeExecute(fn)
		case <-l.done:
			return
		}
	}
}

// safeExecute runs fn, recovering from panics so one broken animation
// handler cannot take the whole page session down.
func (l *Loop) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("animation handler panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Dispatch queues fn to run on the loop goroutine. After Close it is a
// no-op.
func (l *Loop) Dispatch(fn func()) {
	if l.closed.Load() {
		return
	}
	select {
	case l.dispatchCh <- fn:
	case <-l.done:
	}
}

// DispatchWait queues fn and blocks until it has run. Intended for tests
// and teardown barriers; returns immediately if the loop is closed.
func (l *Loop) DispatchWait(fn func()) {
	doneCh := make(chan struct{})
	l.Dispatch(func() {
		defer close(doneCh)
		fn()
	})
	select {
	case <-doneCh:
	case <-l.done:
	}
}

// Close stops the loop. Pending work is dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}

// Done returns a channel closed when the loop shuts down.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Timeout runs fn on the loop after duration d. The returned Cleanup
// cancels the timer if called before it fires; exactly one of
// {fn runs, Cleanup wins} happens.
func (l *Loop) Timeout(d time.Duration, fn func()) Cleanup {
	var fired atomic.Bool
	timer := time.AfterFunc(d, func() {
		if fired.CompareAndSwap(false, true) {
			l.Dispatch(fn)
		}
	})
	return func() {
		fired.Store(true)
		timer.Stop()
	}
}

// Interval runs fn on the loop every d until the returned Cleanup is
// called or the loop closes. The first tick occurs after d.
func (l *Loop) Interval(d time.Duration, fn func()) Cleanup {
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Dispatch(fn)
			case <-stop:
				return
			case <-l.done:
				return
			}
		}
	}()

	return func() {
		stopOnce.Do(func() { close(stop) })
	}
}

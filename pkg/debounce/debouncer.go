package debounce

import (
	"context"
	"sync"
	"time"
)

// Func is a debounced task. ctx is cancelled once the task is superseded or
// the debouncer closes; token must be checked with Current before applying
// results.
type Func func(ctx context.Context, token Token)

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock swaps the time source.
func WithClock(clock Clock) Option {
	return func(d *Debouncer) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithContext sets the parent context for every task context.
func WithContext(ctx context.Context) Option {
	return func(d *Debouncer) {
		if ctx != nil {
			d.base = ctx
		}
	}
}

// Debouncer delays a task until its window has elapsed without another
// Trigger. Each Trigger supersedes the previous task, whether it is still
// waiting or already running.
type Debouncer struct {
	window time.Duration
	clock  Clock
	base   context.Context
	guard  Guard

	mu      sync.Mutex
	timer   Timer
	pending Func
	token   Token
	cancel  context.CancelFunc
	ctx     context.Context
	closed  bool

	inflight sync.WaitGroup
}

// New builds a Debouncer with the supplied window. A non-positive window runs
// tasks on the next clock tick.
func New(window time.Duration, opts ...Option) *Debouncer {
	if window < 0 {
		window = 0
	}
	d := &Debouncer{
		window: window,
		clock:  RealClock(),
		base:   context.Background(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(d)
	}
	return d
}

// Window returns the configured quiet period.
func (d *Debouncer) Window() time.Duration {
	if d == nil {
		return 0
	}
	return d.window
}

// Trigger schedules fn after the window and returns its token. The previous
// task is stopped, its context cancelled and its token invalidated. A closed
// debouncer ignores the call and returns the zero token.
func (d *Debouncer) Trigger(fn Func) Token {
	if d == nil || fn == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}
	// advance the generation before cancelling so a woken task already
	// sees itself as stale
	token := d.guard.Next()
	d.stopLocked()

	ctx, cancel := context.WithCancel(d.base)
	d.token = token
	d.pending = fn
	d.ctx = ctx
	d.cancel = cancel
	d.inflight.Add(1)
	d.timer = d.clock.AfterFunc(d.window, func() { d.fire(token) })
	return token
}

// Flush runs the pending task immediately on the calling goroutine. It
// reports false when nothing was waiting.
func (d *Debouncer) Flush() bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	if d.closed || d.pending == nil || d.timer == nil || !d.timer.Stop() {
		d.mu.Unlock()
		return false
	}
	fn, ctx, token := d.pending, d.ctx, d.token
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	defer d.inflight.Done()
	fn(ctx, token)
	return true
}

// Pending reports whether a task is waiting for its window to elapse.
func (d *Debouncer) Pending() bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Current reports whether token belongs to the latest task.
func (d *Debouncer) Current(token Token) bool {
	if d == nil {
		return false
	}
	return d.guard.Current(token)
}

// Cancel stops the pending task and invalidates any running one. The
// debouncer stays usable.
func (d *Debouncer) Cancel() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.guard.Invalidate()
	d.stopLocked()
}

// Close cancels outstanding work and rejects further triggers. It is safe to
// call more than once.
func (d *Debouncer) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.guard.Invalidate()
	d.stopLocked()
}

// Wait blocks until every triggered task has either run or been stopped.
// Pending timers must fire or be cancelled for Wait to return.
func (d *Debouncer) Wait() {
	if d == nil {
		return
	}
	d.inflight.Wait()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil && d.timer.Stop() {
		// stopped before firing; fire will never account for it
		d.inflight.Done()
	}
	d.timer = nil
	d.pending = nil
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Debouncer) fire(token Token) {
	defer d.inflight.Done()

	d.mu.Lock()
	if d.closed || d.pending == nil || d.token != token {
		d.mu.Unlock()
		return
	}
	fn, ctx := d.pending, d.ctx
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	fn(ctx, token)
}

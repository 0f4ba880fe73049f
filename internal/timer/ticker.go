// Package timer provides the periodic wake-up that drives session countdowns
// and the slower watcher that nudges the cook about forgotten timers.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/mise/internal/logger"
)

// Option configures the ticker.
type Option func(*Ticker)

// WithTickInterval sets how often the tick function runs.
func WithTickInterval(d time.Duration) Option {
	return func(t *Ticker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// Ticker calls a function at a fixed period while it is started. It can be
// suspended from inside that function when there is nothing left to do and
// started again later, so an idle session costs no wake-ups.
//
// At most one loop is live at a time. A suspended loop may still be
// unwinding when the next one starts; it never calls fn again.
type Ticker struct {
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	running bool
	gen     uint64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTicker creates a stopped ticker. The default period is one second.
func NewTicker(log *logger.Logger, opts ...Option) *Ticker {
	t := &Ticker{
		interval: time.Second,
		log:      log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interval returns the tick period.
func (t *Ticker) Interval() time.Duration { return t.interval }

// Start begins calling fn every interval with a context that is cancelled
// when the loop is suspended or stopped. It reports whether a new loop was
// started; it is a no-op while one is already running or when ctx is
// already done. Non-blocking.
func (t *Ticker) Start(ctx context.Context, fn func(context.Context)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running || ctx.Err() != nil {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.gen++
	t.cancel = cancel
	t.running = true

	t.wg.Add(1)
	go t.loop(loopCtx, t.gen, fn)

	t.log.Debug("ticker started (interval=%s)", t.interval)
	return true
}

// Suspend cancels the current loop without waiting for it to exit. It is
// safe to call from inside fn.
func (t *Ticker) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.cancel()
	t.cancel = nil
	t.running = false
	t.log.Debug("ticker suspended")
}

// Stop suspends the ticker and waits for every loop goroutine to return.
// It must not be called from inside fn.
func (t *Ticker) Stop() {
	t.Suspend()
	t.wg.Wait()
}

// Running reports whether a loop is live.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Ticker) loop(ctx context.Context, gen uint64, fn func(context.Context)) {
	defer t.wg.Done()
	defer t.release(gen)

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			// Both cases can be ready at once after a suspend.
			if ctx.Err() != nil {
				return
			}
			fn(ctx)
		}
	}
}

// release marks the ticker idle when loop gen ends on its own, which happens
// when the parent context is cancelled. A loop that was suspended, or
// replaced by a newer one, leaves the state alone.
func (t *Ticker) release(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running || t.gen != gen {
		return
	}
	t.cancel()
	t.cancel = nil
	t.running = false
	t.log.Debug("ticker stopped by parent context")
}

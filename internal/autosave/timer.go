package autosave

import (
	"sync"
	"time"
)

// Timer is a cancellable, re-armable one-shot timer.
//
// Reset (re)starts the countdown; only the most recent arming can fire.
// Stop cancels any pending fire and waits for a callback already in
// progress, so nothing runs after Stop returns.
type Timer struct {
	d  time.Duration
	fn func()

	mu      sync.Mutex
	t       *time.Timer
	gen     uint64
	pending bool
	stopped bool

	inflight sync.WaitGroup
}

// NewTimer returns an unarmed timer that calls fn d after the last Reset.
func NewTimer(d time.Duration, fn func()) *Timer {
	return &Timer{d: d, fn: fn}
}

// Reset arms the timer, replacing any pending countdown. It is a no-op after
// Stop.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.cancelLocked()

	t.gen++
	gen := t.gen
	t.pending = true
	t.inflight.Add(1)
	t.t = time.AfterFunc(t.d, func() { t.fire(gen) })
}

// Cancel drops a pending countdown without stopping the timer for good.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// Pending reports whether a countdown is armed and has not fired.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Stop cancels the timer permanently and waits for a running callback.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.cancelLocked()
	t.mu.Unlock()

	t.inflight.Wait()
}

func (t *Timer) cancelLocked() {
	if t.t == nil {
		return
	}
	if t.t.Stop() {
		// the callback will never run; release its slot here
		t.inflight.Done()
	}
	t.t = nil
	t.pending = false
	t.gen++
}

func (t *Timer) fire(gen uint64) {
	defer t.inflight.Done()

	t.mu.Lock()
	if t.stopped || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.t = nil
	t.mu.Unlock()

	t.fn()
}

// Package debounce turns a rapidly changing value into a stable one that is
// emitted only after a quiet period with no further changes.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period used when none is configured.
const DefaultDelay = 500 * time.Millisecond

// Debouncer emits the last observed value once no new value has arrived for
// the configured delay. Superseded values are discarded, never queued.
type Debouncer[T comparable] struct {
	delay time.Duration
	emit  func(T)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64 // bumped on every Observe and Stop; a timer only fires for its own seq
	stable  T
	pending bool
	stopped bool

	// emitMu serializes emissions without blocking Observe
	emitMu sync.Mutex
}

// New creates a debouncer that calls emit with each new stable value.
// A non-positive delay falls back to DefaultDelay.
func New[T comparable](delay time.Duration, emit func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{
		delay: delay,
		emit:  emit,
	}
}

// Observe records a new input value and restarts the quiet period.
func (d *Debouncer[T]) Observe(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = true
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(seq, v)
	})
}

// fire promotes v to the stable value if its timer was not superseded.
func (d *Debouncer[T]) fire(seq uint64, v T) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	if v == d.stable {
		// The settled value did not change; nothing downstream needs to run
		d.pending = false
		d.mu.Unlock()
		return
	}
	d.stable = v
	d.mu.Unlock()

	if d.emit != nil {
		d.emit(v)
	}

	d.mu.Lock()
	if seq == d.seq {
		d.pending = false
	}
	d.mu.Unlock()
}

// Stable returns the most recently emitted value.
func (d *Debouncer[T]) Stable() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stable
}

// Pending reports whether a value is waiting for its quiet period to end or
// is still being emitted.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Delay returns the configured quiet period.
func (d *Debouncer[T]) Delay() time.Duration {
	return d.delay
}

// Stop cancels any pending emission. No value is emitted after Stop returns.
// Safe to call multiple times.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.seq++
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	// Wait out an emission that passed its checks before Stop.
	// Stop must therefore not be called from inside emit.
	d.emitMu.Lock()
	defer d.emitMu.Unlock()
}

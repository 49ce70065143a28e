// Package alert holds a single transient notification that hides itself
// after a fixed window.
package alert

import (
	"sync"
	"time"

	"ghsearch/internal/domain"
)

// DefaultWindow is how long an alert stays visible when none is configured.
const DefaultWindow = 3500 * time.Millisecond

// Channel owns one AlertState. Showing a new alert replaces the text and
// restarts the window; the previous timer is cancelled, never stacked.
type Channel struct {
	window time.Duration

	mu       sync.Mutex
	state    domain.AlertState
	timer    *time.Timer
	seq      uint64
	stopped  bool
	onExpire func()
}

// New creates a hidden alert channel. A non-positive window falls back to
// DefaultWindow.
func New(window time.Duration) *Channel {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Channel{
		window: window,
		state:  domain.HiddenAlert,
	}
}

// OnExpire registers fn to be called after the alert hides itself.
// It is not called for explicit Show or Hide.
func (c *Channel) OnExpire(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpire = fn
}

// Show makes text visible and (re)arms the auto-hide timer.
func (c *Channel) Show(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	c.cancelTimerLocked()
	c.state = domain.AlertState{Visible: true, Text: text}
	seq := c.seq
	c.timer = time.AfterFunc(c.window, func() {
		c.expire(seq)
	})
}

// Hide resets the alert and cancels any pending auto-hide.
func (c *Channel) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelTimerLocked()
	c.state = domain.HiddenAlert
}

// State returns the current alert state.
func (c *Channel) State() domain.AlertState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Window returns the auto-hide duration.
func (c *Channel) Window() time.Duration {
	return c.window
}

// Stop cancels the pending timer. The current state is kept, but no further
// alerts are shown.
func (c *Channel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	c.cancelTimerLocked()
}

func (c *Channel) expire(seq uint64) {
	c.mu.Lock()
	if c.stopped || seq != c.seq {
		// Superseded by a newer Show or Hide
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.state = domain.HiddenAlert
	hook := c.onExpire
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// cancelTimerLocked stops the live timer and invalidates one that already fired.
func (c *Channel) cancelTimerLocked() {
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

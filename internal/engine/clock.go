package engine

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown is a cancelable wall-clock countdown. Each run emits a tick
// roughly once per second carrying the remaining whole seconds, and at most
// one expiry when the deadline passes. Starting a new run implicitly
// cancels the one in progress. Callbacks are invoked from the countdown's
// goroutine; a run canceled in the same instant its deadline passes may
// still deliver that expiry, which is why the controller additionally
// discards signals from superseded round generations.
type Countdown struct {
	clock clockwork.Clock

	mu     sync.Mutex
	run    uint64
	stopCh chan struct{}
}

// NewCountdown builds a countdown on the given clock.
func NewCountdown(clock clockwork.Clock) *Countdown {
	return &Countdown{clock: clock}
}

// Start begins a run of the given duration. Any run already in progress is
// canceled first and fires no further callbacks.
func (c *Countdown) Start(d time.Duration, onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	if c.stopCh != nil {
		close(c.stopCh)
	}
	c.run++
	run := c.run
	stopCh := make(chan struct{})
	c.stopCh = stopCh
	deadline := c.clock.Now().Add(d)
	c.mu.Unlock()

	go c.loop(run, stopCh, deadline, onTick, onExpire)
}

// Cancel stops the current run, if any.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	c.run++
}

func (c *Countdown) loop(run uint64, stopCh chan struct{}, deadline time.Time, onTick func(int), onExpire func()) {
	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()
	timer := c.clock.NewTimer(deadline.Sub(c.clock.Now()))
	defer stopAndDrainTimer(timer)

	for {
		select {
		case <-ticker.Chan():
			if !c.alive(run) {
				return
			}
			remaining := int(deadline.Sub(c.clock.Now()).Round(time.Second) / time.Second)
			if remaining < 0 {
				remaining = 0
			}
			if onTick != nil {
				onTick(remaining)
			}
		case <-timer.Chan():
			if !c.claimExpiry(run) {
				return
			}
			if onExpire != nil {
				onExpire()
			}
			return
		case <-stopCh:
			return
		}
	}
}

// alive reports whether this run is still the countdown's current run.
func (c *Countdown) alive(run uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run == run
}

// claimExpiry atomically checks that this run is current and marks it
// finished, so a later Cancel or Start has nothing left to stop.
func (c *Countdown) claimExpiry(run uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != run {
		return false
	}
	c.stopCh = nil
	return true
}

// stopAndDrainTimer stops a timer and drains its channel so the goroutine
// does not leak a buffered fire.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}

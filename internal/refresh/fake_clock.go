package refresh

import (
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock that counts scheduled and cancelled
// timers. It is used by tests of anything driving a Controller.
type FakeClock struct {
	mu        sync.Mutex
	now       time.Duration
	timers    []*FakeTimer
	scheduled int
	cancelled int
}

// NewFakeClock returns a FakeClock at time zero.
func NewFakeClock() *FakeClock {
	return &FakeClock{}
}

// FakeTimer is a timer created by FakeClock.
type FakeTimer struct {
	clock    *FakeClock
	Interval time.Duration
	due      time.Duration
	fn       func()
	stopped  bool
}

// Every registers a recurring timer. Like time.NewTicker it panics on a
// non-positive interval.
func (c *FakeClock) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		panic("refresh: non-positive interval for FakeClock.Every")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t := &FakeTimer{
		clock:    c,
		Interval: d,
		due:      c.now + d,
		fn:       fn,
	}
	c.timers = append(c.timers, t)
	c.scheduled++
	return t
}

// Stop cancels the timer. Stopping twice counts once.
func (t *FakeTimer) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	t.clock.cancelled++
}

// Advance moves time forward by d and fires every due callback in time
// order. It returns the number of callbacks fired.
func (c *FakeClock) Advance(d time.Duration) int {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	fired := 0
	for {
		c.mu.Lock()
		var next *FakeTimer
		for _, t := range c.timers {
			if t.stopped || t.due > target {
				continue
			}
			if next == nil || t.due < next.due {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return fired
		}
		c.now = next.due
		next.due += next.Interval
		fn := next.fn
		c.mu.Unlock()

		fn()
		fired++
	}
}

// Scheduled returns the number of timers ever created.
func (c *FakeClock) Scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduled
}

// Cancelled returns the number of timers stopped.
func (c *FakeClock) Cancelled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Outstanding returns the number of live timers.
func (c *FakeClock) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduled - c.cancelled
}

// Active returns the live timers.
func (c *FakeClock) Active() []*FakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var active []*FakeTimer
	for _, t := range c.timers {
		if !t.stopped {
			active = append(active, t)
		}
	}
	return active
}

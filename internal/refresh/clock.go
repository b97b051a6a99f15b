package refresh

import (
	"sync"
	"time"
)

// Timer is a handle to a recurring schedule.
type Timer interface {
	// Stop cancels the schedule. No callback starts after Stop returns.
	Stop()
}

// Clock schedules recurring callbacks.
type Clock interface {
	Every(d time.Duration, fn func()) Timer
}

// SystemClock schedules on time.Ticker.
type SystemClock struct{}

// Every runs fn every d until the returned Timer is stopped.
func (SystemClock) Every(d time.Duration, fn func()) Timer {
	t := &tickerTimer{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go t.loop(fn)
	return t
}

type tickerTimer struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once

	// mu serializes callback dispatch against Stop.
	mu      sync.Mutex
	stopped bool
}

func (t *tickerTimer) loop(fn func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			t.mu.Lock()
			if t.stopped {
				t.mu.Unlock()
				return
			}
			fn()
			t.mu.Unlock()
		}
	}
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() {
		t.mu.Lock()
		t.stopped = true
		t.mu.Unlock()
		t.ticker.Stop()
		close(t.done)
	})
}

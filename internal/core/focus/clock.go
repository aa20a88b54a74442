package focus

import (
	"sync"
	"time"
)

// Clock produces a steady pulse stream while subscribed. Every Subscribe
// call must be balanced by exactly one call of the returned unsubscribe
// function; a leaked subscription keeps ticking forever.
type Clock interface {
	Subscribe() (pulses <-chan time.Time, unsubscribe func())
}

// TickerClock is a Clock backed by time.Ticker.
type TickerClock struct {
	interval time.Duration
}

// NewTickerClock creates a ticker-backed clock. A non-positive interval
// defaults to one second.
func NewTickerClock(interval time.Duration) *TickerClock {
	if interval <= 0 {
		interval = time.Second
	}
	return &TickerClock{interval: interval}
}

// Subscribe starts a new pulse stream. The returned channel is closed after
// unsubscribe is called; unsubscribe is idempotent.
func (c *TickerClock) Subscribe() (<-chan time.Time, func()) {
	ticker := time.NewTicker(c.interval)
	done := make(chan struct{})
	pulses := make(chan time.Time, 4)

	go func() {
		defer close(pulses)
		for {
			select {
			case <-done:
				return
			case pulseTime := <-ticker.C:
				select {
				case pulses <- pulseTime:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
	return pulses, unsubscribe
}

// Package tick provides the fixed-rate simulation clock shared by the
// predicting client and the authoritative server.
package tick

import (
	"context"
	"time"
)

// Tick is a discrete simulation step index. It never wraps in practice.
type Tick uint64

// Clock advances one tick per fixed interval. It is not safe for concurrent
// use; each loop owns its own clock.
type Clock struct {
	rate int
	now  Tick
}

// NewClock returns a clock running at rate ticks per second, starting at tick 0.
func NewClock(rate int) *Clock {
	if rate <= 0 {
		rate = 1
	}
	return &Clock{rate: rate}
}

func (c *Clock) Now() Tick { return c.now }

func (c *Clock) Rate() int { return c.rate }

// Advance moves the clock forward by exactly one tick and returns the new tick.
func (c *Clock) Advance() Tick {
	c.now++
	return c.now
}

// Reset jumps the clock to t. Used when the predicting side re-aligns after a resync.
func (c *Clock) Reset(t Tick) {
	c.now = t
}

// Interval is the wall-clock duration of one tick.
func (c *Clock) Interval() time.Duration {
	return time.Second / time.Duration(c.rate)
}

// DT is the simulated seconds per tick.
func (c *Clock) DT() float64 {
	return 1.0 / float64(c.rate)
}

// Run advances the clock on a ticker and calls fn with each new tick until
// ctx is cancelled. fn runs on the caller's goroutine.
func (c *Clock) Run(ctx context.Context, fn func(Tick)) {
	c.Every(ctx, func() { fn(c.Advance()) })
}

// Every calls fn once per interval without advancing the clock, for loops
// whose step advances it themselves.
func (c *Clock) Every(ctx context.Context, fn func()) {
	ticker := time.NewTicker(c.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

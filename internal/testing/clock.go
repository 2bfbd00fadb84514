package testing

import (
	"context"
	"sync"
	"time"
)

// ManualClock is a clock that only moves when told to. Sleep advances it
// instantly, which lets loops with waits run without real delays.
type ManualClock struct {
	mu      sync.RWMutex
	current time.Time
	slept   []time.Duration
}

// NewManualClock returns a clock set to the CKB mainnet launch day.
func NewManualClock() *ManualClock {
	return NewManualClockAt(time.Date(2019, 11, 16, 0, 0, 0, 0, time.UTC))
}

func NewManualClockAt(t time.Time) *ManualClock {
	return &ManualClock{current: t}
}

func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Sleep advances the clock by d and records the request. It fails only
// when ctx is already done.
func (c *ManualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	return nil
}

// Slept returns every duration passed to Sleep, in call order.
func (c *ManualClock) Slept() []time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]time.Duration(nil), c.slept...)
}

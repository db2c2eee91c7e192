package testutil

import (
	"sync"
	"time"
)

// Clock is a deterministic wall clock for tests.
//
// Each call to Now returns the start time advanced by one more step, so
// names derived from timestamps (quarantined store files, for example) are
// predictable and unique within a test.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewClock creates a clock whose first Now returns start.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{start: start, step: step}
}

// Now returns the next time and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many times Now has been called.
func (c *Clock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock so the next Now returns start again.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}

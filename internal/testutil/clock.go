package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time of a SteppingClock: 2024-01-01T00:00:00Z.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// SteppingClock provides a thread-safe deterministic wall clock for tests.
//
// Every call to Now returns the current time and then advances it by Step,
// so consecutive records get distinct, predictable timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewSteppingClock creates a clock starting at Epoch that advances by step.
//
// A zero step freezes the clock.
func NewSteppingClock(step time.Duration) *SteppingClock {
	return &SteppingClock{now: Epoch, step: step}
}

// Now returns the current time and advances the clock.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the current time without advancing.
func (c *SteppingClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to Epoch.
//
// Used for test reuse. After Reset(), the next call to Now() returns Epoch.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}

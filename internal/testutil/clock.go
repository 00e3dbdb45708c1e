package testutil

import (
	"sync"
	"time"
)

// DeterministicClock provides a thread-safe clock that advances by a fixed
// step on every call to Now.
//
// The first call to Now returns the start instant. This lets a test run
// several cycles against one organism and still predict every audit
// timestamp.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewDeterministicClock creates a clock starting at startMillis (epoch ms)
// that advances by step per call. A zero step yields a frozen clock.
func NewDeterministicClock(startMillis int64, step time.Duration) *DeterministicClock {
	return &DeterministicClock{start: time.UnixMilli(startMillis), step: step}
}

// Now returns the current instant and advances the clock.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many times Now has been called.
func (c *DeterministicClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock to its start instant.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}

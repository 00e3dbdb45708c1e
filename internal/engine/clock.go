package engine

import "time"

// Clock supplies the current time for recency scoring and audit timestamps.
//
// The engine never reads the wall clock directly; tests inject a fixed
// clock so that classification and history records are reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.T
}

// NewFixedClockMillis creates a FixedClock at the given epoch milliseconds.
func NewFixedClockMillis(ms int64) FixedClock {
	return FixedClock{T: time.UnixMilli(ms)}
}

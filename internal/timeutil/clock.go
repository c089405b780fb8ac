// Package timeutil provides the clock capability and timestamp normalization
// rules used throughout GoDag. All instants are handled in UTC; anything that
// reaches the data model without an explicit offset is rejected.
package timeutil

import (
	"sync"
	"time"
)

// Clock supplies the current instant, always normalized to UTC.
// Passing a Clock explicitly (rather than calling time.Now at use sites)
// keeps temporal checks deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current wall-clock time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FrozenClock is a Clock fixed at a settable instant. Used in tests.
type FrozenClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFrozenClock creates a FrozenClock pinned at t (normalized to UTC).
func NewFrozenClock(t time.Time) *FrozenClock {
	return &FrozenClock{t: t.UTC()}
}

// Now returns the frozen instant.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the frozen instant to t (normalized to UTC).
func (c *FrozenClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t.UTC()
	c.mu.Unlock()
}

// Advance moves the frozen instant forward by d.
func (c *FrozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

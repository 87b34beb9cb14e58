// Package clock supplies wall-clock time to the services so tests can pin it.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the process wall clock.
func System() Clock { return systemClock{} }

// Fixed is a settable clock for tests. Safe for concurrent use.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed creates a clock frozen at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now returns the frozen instant.
func (c *Fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Fixed) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *Fixed) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Func adapts a plain function.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

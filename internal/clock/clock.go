// Package clock provides an abstraction for time operations to improve
// testability. Instead of calling time.Now() directly, engine code uses
// the Clock interface, which can be replaced with a fixed clock in tests
// to control time-dependent behavior.
package clock

import (
	"sync"
	"time"
)

// Clock is an interface for time operations.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time from the system clock in UTC.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a Clock that returns a controlled time. It is safe for
// concurrent use and intended for tests.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed creates a Fixed clock set to the given time.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now returns the currently configured time.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d and returns the new time.
func (f *Fixed) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	return f.now
}

// Ensure implementations satisfy Clock.
var (
	_ Clock = RealClock{}
	_ Clock = (*Fixed)(nil)
)

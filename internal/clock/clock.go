// Package clock abstracts the time source so schedule computations and the
// dispatcher can be driven deterministically in tests.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock in UTC.
type RealClock struct{}

// NewRealClock returns a Clock backed by the system clock.
func NewRealClock() Clock {
	return &RealClock{}
}

// Now returns the current UTC time.
func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}

// MockClock is a manually controlled Clock for tests.
type MockClock struct {
	currentTime time.Time
}

// NewMockClock returns a MockClock frozen at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

// Now returns the frozen time.
func (c *MockClock) Now() time.Time {
	return c.currentTime
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.currentTime = t
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.currentTime = c.currentTime.Add(d)
}

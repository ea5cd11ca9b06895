// Package clock abstracts the passage of time so that polling can be driven by
// tests without real delays.
package clock

import "time"

// Clock tells time and schedules callbacks
type Clock interface {
	Now() time.Time
	// AfterFunc calls f once d has elapsed
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback. Stop reports whether it prevented the call.
type Timer interface {
	Stop() bool
}

// Real is the wall clock. Callbacks run on their own goroutine.
type Real struct{}

// Now returns the current time
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Package system provides the wall clock used for run timing.
package system

import "time"

// Clock reports the current time. The monotonic reading is kept so durations
// between two readings survive wall clock steps.
type Clock struct{}

// New returns a Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now()
}

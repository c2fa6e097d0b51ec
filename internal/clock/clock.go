// Package clock abstracts delayed callbacks so quiz sessions can run on wall
// time in production and on simulated time in tests.
package clock

import "time"

// Timer is a pending callback. Stop reports whether it prevented the call.
type Timer interface {
	Stop() bool
}

// Scheduler schedules callbacks and reports the current time.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real runs callbacks on the runtime timer heap.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

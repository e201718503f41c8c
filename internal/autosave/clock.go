package autosave

import "time"

// Clock is the time source driving controller timers
type Clock interface {
	Now() time.Time
	// AfterFunc runs f once d has elapsed. The returned function cancels the
	// timer and reports whether it was still pending.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc
func (SystemClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

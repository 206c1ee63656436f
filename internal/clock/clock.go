// Package clock supplies wall-clock readings to components that stamp
// records or measure elapsed time.
package clock

import "time"

// Clock returns the current time. Components take a Clock instead of
// calling time.Now so tests can pin the reading.
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock in UTC.
type System struct{}

// Now returns time.Now in UTC.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Func adapts a plain function to Clock.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}

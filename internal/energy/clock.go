package energy

import "time"

// Clock provides time for components that reason about ongoing intervals.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now() }

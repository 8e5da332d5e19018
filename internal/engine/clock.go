package engine

import "time"

// Clock supplies the wall time a run plans against. The current year decides
// where windows end.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

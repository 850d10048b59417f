package shared

import "time"

// Clock abstracts the current time so that time-dependent logic
// (e.g., overdue evaluation) is deterministically testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real system time
type SystemClock struct{}

// Now returns the current system time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant; intended for tests
type FixedClock struct {
	Instant time.Time
}

// Now returns the fixed instant
func (c FixedClock) Now() time.Time {
	return c.Instant
}

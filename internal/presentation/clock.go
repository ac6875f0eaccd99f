package presentation

import "time"

// Clock abstracts "now" so SLA math and dedup windows are testable
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns the current local time
func (SystemClock) Now() time.Time { return time.Now() }

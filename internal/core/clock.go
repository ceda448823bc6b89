package core

import "time"

// Clock is the time source used by any component with timing-sensitive
// behavior. Production code uses SystemClock; tests substitute their own
// implementation to make timing deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by the system's wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TimestampMillis returns the clock's current time as epoch milliseconds,
// the representation persisted for player activity stamps.
func TimestampMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}

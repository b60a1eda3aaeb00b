package packet

import "time"

const (
	// TicksPerSecond is the number of 100 ns ticks in one second.
	TicksPerSecond = 10_000_000
	// unixEpochTicks is the tick count at 1970-01-01T00:00:00Z, counting
	// from 0001-01-01T00:00:00Z.
	unixEpochTicks int64 = 621_355_968_000_000_000
	// TickDuration is the granularity of encoded timestamps.
	TickDuration = 100 * time.Nanosecond
)

// TicksFromTime converts t to 100 ns ticks since 0001-01-01T00:00:00Z UTC.
// Sub-tick precision is truncated.
func TicksFromTime(t time.Time) int64 {
	t = t.UTC()
	return unixEpochTicks + t.Unix()*TicksPerSecond + int64(t.Nanosecond())/100
}

// TimeFromTicks converts a tick count back to a UTC time.
func TimeFromTicks(ticks int64) time.Time {
	d := ticks - unixEpochTicks
	sec := d / TicksPerSecond
	rem := d % TicksPerSecond
	if rem < 0 {
		rem += TicksPerSecond
		sec--
	}
	return time.Unix(sec, rem*100).UTC()
}

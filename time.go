package tf2

import (
	"fmt"
	"math"
	"time"
)

// Time is a point in (wall or simulated) time, counted in nanoseconds since the
// epoch of whichever clock stamps the transforms. All comparisons inside the
// buffer use this single 64-bit count.
//
// The zero Time is an ordinary stamp (e.g. the start of a simulated clock).
// Queries ask for the most recent data with Latest instead.
type Time int64

// Latest asks lookups for the most recent transform available on the whole
// chain. It lies below any stamp NewTime can produce, so it never collides
// with a real stamp.
const Latest Time = math.MinInt64

// NewTime canonicalises a stamp expressed as signed seconds and unsigned
// nanoseconds. Nanoseconds beyond a second carry over into the seconds.
func NewTime(sec int32, nanosec uint32) Time {
	return Time(int64(sec)*int64(time.Second) + int64(nanosec))
}

// FromTime converts a time.Time into a Time.
func FromTime(t time.Time) Time {
	return Time(t.UnixNano())
}

// FromSeconds converts fractional seconds into a Time, rounding to the nearest
// nanosecond.
func FromSeconds(s float64) Time {
	if s < 0 {
		return Time(s*float64(time.Second) - 0.5)
	}
	return Time(s*float64(time.Second) + 0.5)
}

// IsLatest reports whether t is the Latest sentinel rather than a stamp.
func (t Time) IsLatest() bool { return t == Latest }

// Sec returns the signed seconds of t, rounded towards negative infinity so
// that Nanosec is never negative.
func (t Time) Sec() int32 {
	s := int64(t) / int64(time.Second)
	if int64(t)%int64(time.Second) < 0 {
		s--
	}
	return int32(s)
}

// Nanosec returns the sub-second part of t, in [0, 1e9).
func (t Time) Nanosec() uint32 {
	ns := int64(t) % int64(time.Second)
	if ns < 0 {
		ns += int64(time.Second)
	}
	return uint32(ns)
}

// Seconds returns t as fractional seconds.
func (t Time) Seconds() float64 {
	return float64(t) / float64(time.Second)
}

// Add returns t+d.
func (t Time) Add(d time.Duration) Time { return t + Time(d) }

// Sub returns the duration t-u.
func (t Time) Sub(u Time) time.Duration { return time.Duration(t - u) }

// Time converts t into a time.Time in UTC.
func (t Time) Time() time.Time { return time.Unix(0, int64(t)).UTC() }

// String formats t as seconds with nanosecond precision, e.g. "12.000000500".
// Latest formats as "latest".
func (t Time) String() string {
	if t.IsLatest() {
		return "latest"
	}
	if t < 0 {
		return "-" + (-t).String()
	}
	return fmt.Sprintf("%d.%09d", int64(t)/int64(time.Second), int64(t)%int64(time.Second))
}

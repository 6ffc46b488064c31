package tf2

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func shift(x float64) Transform {
	return Transform{Translation: Vector3{X: x}, Rotation: IdentityQuaternion()}
}

func sec(s float64) Time { return FromSeconds(s) }

func TestTimeCacheInsert(t *testing.T) {
	c := newTimeCache(10 * time.Second)

	inserts := []struct {
		Sample  sample
		Changed bool
		Evicted int
	}{
		{Sample: sample{sec(3), shift(3)}, Changed: true},
		{Sample: sample{sec(1), shift(1)}, Changed: true},
		{Sample: sample{sec(2), shift(2)}, Changed: true},
		// Identical re-send.
		{Sample: sample{sec(2), shift(2)}, Changed: false},
		// Same stamp, new transform: replaced.
		{Sample: sample{sec(2), shift(20)}, Changed: true},
		// Moves the window to [2s, 12s], evicting the sample at 1s.
		{Sample: sample{sec(12), shift(12)}, Changed: true, Evicted: 1},
		// Too old to ever be retained.
		{Sample: sample{sec(0.5), shift(0.5)}, Changed: true, Evicted: 1},
	}
	for i, in := range inserts {
		changed, evicted := c.insert(in.Sample)
		if changed != in.Changed || evicted != in.Evicted {
			t.Errorf("insert #%d (%v) = (%v, %d), want (%v, %d)", i, in.Sample.stamp, changed, evicted, in.Changed, in.Evicted)
		}
	}

	want := []sample{
		{sec(2), shift(20)},
		{sec(3), shift(3)},
		{sec(12), shift(12)},
	}
	if diff := cmp.Diff(want, c.samples, cmp.AllowUnexported(sample{})); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	if oldest, newest, n := c.span(); oldest != sec(2) || newest != sec(12) || n != 3 {
		t.Errorf("span() = (%v, %v, %d), want (2s, 12s, 3)", oldest, newest, n)
	}
}

func TestTimeCacheAt(t *testing.T) {
	c := newTimeCache(10 * time.Second)
	c.insert(sample{sec(1), shift(1)})
	c.insert(sample{sec(3), shift(5)})

	tests := []struct {
		Name   string
		Time   Time
		Policy ExtrapolationPolicy
		Want   Transform
		Error  string // a fragment of the description of the range error
	}{
		{Name: "zero-stamp", Time: 0, Error: "into the past"},
		{Name: "oldest", Time: sec(1), Want: shift(1)},
		{Name: "newest", Time: sec(3), Want: shift(5)},
		{Name: "between", Time: sec(1.5), Want: shift(2)},
		{Name: "future", Time: sec(4), Error: "into the future"},
		{Name: "past", Time: sec(0.5), Error: "into the past"},
		{Name: "nearest-future", Time: sec(4), Policy: ExtrapolateNearest, Want: shift(5)},
		{Name: "nearest-past", Time: sec(0.5), Policy: ExtrapolateNearest, Want: shift(1)},
	}

	for _, tt := range tests {
		got, rerr := c.at(tt.Time, tt.Policy)
		if tt.Error != "" {
			if rerr == nil {
				t.Errorf("%s: at(%v) succeeded, want a range error", tt.Name, tt.Time)
			} else if msg := rerr.describe("child", "parent"); !strings.Contains(msg, tt.Error) {
				t.Errorf("%s: at(%v) error %q does not mention %q", tt.Name, tt.Time, msg, tt.Error)
			}
			if c.check(tt.Time, tt.Policy) == nil {
				t.Errorf("%s: check(%v) passed where at failed", tt.Name, tt.Time)
			}
			continue
		}
		if rerr != nil {
			t.Errorf("%s: at(%v) failed: %s", tt.Name, tt.Time, rerr.describe("child", "parent"))
			continue
		}
		if diff := cmp.Diff(tt.Want, got, approx); diff != "" {
			t.Errorf("%s: at(%v) mismatch (-want +got):\n%s", tt.Name, tt.Time, diff)
		}
	}
}

func TestTimeCacheSingleSample(t *testing.T) {
	c := newTimeCache(10 * time.Second)
	c.insert(sample{sec(2), shift(2)})

	if _, rerr := c.at(sec(2), ExtrapolateStrict); rerr != nil {
		t.Errorf("at(2s) failed: %s", rerr.describe("child", "parent"))
	}
	_, rerr := c.at(sec(1), ExtrapolateStrict)
	if rerr == nil {
		t.Fatalf("at(1s) succeeded on a single sample at 2s")
	}
	if msg := rerr.describe("child", "parent"); !strings.Contains(msg, "only time 2.000000000 is in the buffer") {
		t.Errorf("describe() = %q", msg)
	}
}

func TestStaticCache(t *testing.T) {
	var c staticCache
	if rerr := c.check(sec(1), ExtrapolateStrict); rerr == nil || !rerr.empty {
		t.Errorf("check() on an empty static cache = %v, want an empty range error", rerr)
	}
	if changed, _ := c.insert(sample{sec(5), shift(1)}); !changed {
		t.Errorf("first insert reported no change")
	}
	if changed, _ := c.insert(sample{sec(5), shift(1)}); changed {
		t.Errorf("identical insert reported a change")
	}
	if changed, _ := c.insert(sample{sec(6), shift(2)}); !changed {
		t.Errorf("overwriting insert reported no change")
	}
	for _, at := range []Time{Latest, sec(-100), sec(1e6)} {
		got, rerr := c.at(at, ExtrapolateStrict)
		if rerr != nil {
			t.Errorf("at(%v) failed: %s", at, rerr.describe("child", "parent"))
		}
		if diff := cmp.Diff(shift(2), got); diff != "" {
			t.Errorf("at(%v) mismatch (-want +got):\n%s", at, diff)
		}
	}
}

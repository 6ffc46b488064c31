package tf2

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// ExtrapolationPolicy selects what a lookup does when the requested time falls
// outside the samples retained on some edge of the path.
type ExtrapolationPolicy int

const (
	// ExtrapolateStrict fails such lookups with an ExtrapolationException. It is
	// the default: the buffer never answers with stale or made-up data.
	ExtrapolateStrict ExtrapolationPolicy = iota
	// ExtrapolateNearest answers with the nearest available sample (the oldest
	// or the newest) of the edge instead.
	ExtrapolateNearest
)

func (p ExtrapolationPolicy) String() string {
	switch p {
	case ExtrapolateStrict:
		return "strict"
	case ExtrapolateNearest:
		return "nearest"
	default:
		return fmt.Sprintf("ExtrapolationPolicy(%d)", int(p))
	}
}

// A sample is one observation of an edge.
type sample struct {
	stamp     Time
	transform Transform
}

// An edgeCache stores the history of a single child-to-parent edge. Each edge
// is either dynamic (a timeCache) or static (a staticCache) for as long as it
// exists.
type edgeCache interface {
	isStatic() bool
	// insert stores s and reports whether the cache changed (false means s was
	// identical to what is already stored), along with the number of samples
	// evicted as a consequence.
	insert(s sample) (changed bool, evicted int)
	// at evaluates the edge at time t.
	at(t Time, policy ExtrapolationPolicy) (Transform, *rangeError)
	// check reports whether at would succeed, without evaluating the edge.
	check(t Time, policy ExtrapolationPolicy) *rangeError
	// span returns the stamps of the oldest and newest samples and the number of
	// samples held; static caches report zeroes.
	span() (oldest, newest Time, n int)
}

// A rangeError describes why an edge cannot be evaluated at the requested time.
// The lookup engine turns it into an ExtrapolationException naming the frames
// of the offending edge.
type rangeError struct {
	requested      Time
	oldest, newest Time
	empty          bool
}

func (e *rangeError) describe(child, parent string) string {
	switch {
	case e.empty:
		return fmt.Sprintf("Lookup would require extrapolation at time %v, but the buffer holds no data, when looking up transform from frame [%s] to frame [%s]",
			e.requested, child, parent)
	case e.oldest == e.newest:
		return fmt.Sprintf("Lookup would require extrapolation at time %v, but only time %v is in the buffer, when looking up transform from frame [%s] to frame [%s]",
			e.requested, e.oldest, child, parent)
	case e.requested > e.newest:
		return fmt.Sprintf("Lookup would require extrapolation into the future. Requested time %v but the latest data is at time %v, when looking up transform from frame [%s] to frame [%s]",
			e.requested, e.newest, child, parent)
	default:
		return fmt.Sprintf("Lookup would require extrapolation into the past. Requested time %v but the earliest data is at time %v, when looking up transform from frame [%s] to frame [%s]",
			e.requested, e.oldest, child, parent)
	}
}

// A timeCache holds the dynamic samples of an edge in ascending stamp order,
// with at most one sample per stamp. Samples older than maxAge relative to the
// newest sample are evicted whenever a new sample is inserted.
type timeCache struct {
	samples []sample
	maxAge  time.Duration
}

func newTimeCache(maxAge time.Duration) *timeCache {
	return &timeCache{maxAge: maxAge}
}

func (c *timeCache) isStatic() bool { return false }

// search returns the position of the first sample stamped at or after t, and
// whether that sample is stamped exactly at t.
func (c *timeCache) search(t Time) (int, bool) {
	return slices.BinarySearchFunc(c.samples, t, func(s sample, t Time) int {
		return cmp.Compare(s.stamp, t)
	})
}

func (c *timeCache) insert(s sample) (bool, int) {
	i, found := c.search(s.stamp)
	if found {
		if c.samples[i].transform == s.transform {
			return false, 0
		}
		// Re-sending a stamp replaces the sample; the newest stamp is unchanged,
		// so nothing new falls out of the window.
		c.samples[i] = s
		return true, 0
	}
	c.samples = slices.Insert(c.samples, i, s)
	return true, c.prune()
}

// prune evicts samples older than maxAge relative to the newest sample, and
// returns how many were evicted. The newest sample always survives.
func (c *timeCache) prune() int {
	if len(c.samples) == 0 {
		return 0
	}
	cutoff := c.samples[len(c.samples)-1].stamp.Add(-c.maxAge)
	n, _ := c.search(cutoff)
	if n == 0 {
		return 0
	}
	c.samples = append(c.samples[:0], c.samples[n:]...)
	return n
}

func (c *timeCache) check(t Time, policy ExtrapolationPolicy) *rangeError {
	n := len(c.samples)
	if n == 0 {
		return &rangeError{requested: t, empty: true}
	}
	if policy == ExtrapolateNearest {
		return nil
	}
	oldest, newest := c.samples[0].stamp, c.samples[n-1].stamp
	if t < oldest || t > newest {
		return &rangeError{requested: t, oldest: oldest, newest: newest}
	}
	return nil
}

func (c *timeCache) at(t Time, policy ExtrapolationPolicy) (Transform, *rangeError) {
	if err := c.check(t, policy); err != nil {
		return Transform{}, err
	}
	first, last := c.samples[0], c.samples[len(c.samples)-1]
	switch {
	case t >= last.stamp:
		// Exact, or clamped by ExtrapolateNearest.
		return last.transform, nil
	case t <= first.stamp:
		return first.transform, nil
	}
	i, found := c.search(t)
	if found {
		return c.samples[i].transform, nil
	}
	// Bracketed by two consecutive samples: samples[i-1] < t < samples[i].
	a, b := c.samples[i-1], c.samples[i]
	ratio := float64(t-a.stamp) / float64(b.stamp-a.stamp)
	return interpolate(a.transform, b.transform, ratio), nil
}

func (c *timeCache) span() (Time, Time, int) {
	if len(c.samples) == 0 {
		return 0, 0, 0
	}
	return c.samples[0].stamp, c.samples[len(c.samples)-1].stamp, len(c.samples)
}

// newest returns the stamp of the newest sample.
func (c *timeCache) newest() (Time, bool) {
	if len(c.samples) == 0 {
		return 0, false
	}
	return c.samples[len(c.samples)-1].stamp, true
}

// A staticCache holds the single sample of a static edge, valid for all time.
type staticCache struct {
	s   sample
	set bool
}

func (c *staticCache) isStatic() bool { return true }

func (c *staticCache) insert(s sample) (bool, int) {
	if c.set && c.s == s {
		return false, 0
	}
	c.s, c.set = s, true
	return true, 0
}

func (c *staticCache) check(t Time, _ ExtrapolationPolicy) *rangeError {
	if !c.set {
		return &rangeError{requested: t, empty: true}
	}
	return nil
}

func (c *staticCache) at(t Time, policy ExtrapolationPolicy) (Transform, *rangeError) {
	if err := c.check(t, policy); err != nil {
		return Transform{}, err
	}
	return c.s.transform, nil
}

func (c *staticCache) span() (Time, Time, int) { return 0, 0, 0 }

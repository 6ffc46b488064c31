/*
Package tf2test provides a suite of tests designed to assess transform buffers
(i.e. implementations of [tf2.Transformer]).

The tests operate on the transform buffer through the [tf2.Transformer]
interface only, to check functional correctness and compliance with the
behaviours defined by that interface.

Call tf2test.Run in its own test to invoke the test-suite:

	func TestBuffer(t *testing.T) {
		// Create a new, empty buffer with the default retention window and
		// the strict extrapolation policy.
		buf := tf2.NewBuffer()
		tf2test.Run(t, buf)
	}

The test cases in this suite focus on the behaviour of lookups as the frame
tree evolves:

  - Interpolating between samples and rejecting extrapolation.
  - Composing chains of dynamic and static edges.
  - Reporting unknown frames and disconnected trees.
  - Rejecting malformed writes without a trace.
  - Re-parenting frames and bridging lookups through a fixed frame.

So, specific transform buffers are encouraged to perform additional tests which
are specific to their options (e.g. other extrapolation policies).
*/
package tf2test

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"testing"

	"github.com/go-digitaltwin/tf2"
)

type testCase struct {
	// Subtest name.
	name string
	// A path leading to the test-case's file and line in the source code.
	location string
	// Writes are applied to the tested buffer in order, before the checks run.
	writes []write
	// A list of checks to run on the tested buffer once every write is applied.
	checks []check
}

// A write is a single SetTransform call and its expected outcome.
type write struct {
	transform tf2.TransformStamped
	static    bool
	// The result SetTransform is expected to return.
	changed bool
	// The sentinel error SetTransform is expected to fail with, if any.
	err error
}

// The frames of this suite are a miniature mobile robot: a laser mounted on its
// base, the base moving in an odometry frame, and a map in a world frame.
var cases = []testCase{
	{
		name:     "interpolate-dynamic-edge",
		location: locateSource(),
		writes: []write{
			dynamic("odom", "base_link", seconds(0), translation(0, 0, 0)),
			dynamic("odom", "base_link", seconds(2), translation(2, 0, 0)),
		},
		checks: []check{
			lookup("odom", "base_link", seconds(1), seconds(1), translation(1, 0, 0)),
			lookup("odom", "base_link", seconds(0.5), seconds(0.5), translation(0.5, 0, 0)),
		},
	},
	{
		name:     "exact-stamp-returns-sample",
		location: locateSource(),
		checks: []check{
			lookup("odom", "base_link", seconds(2), seconds(2), translation(2, 0, 0)),
			canTransform("odom", "base_link", seconds(2)),
		},
	},
	{
		name:     "extrapolation-is-rejected",
		location: locateSource(),
		checks: []check{
			lookupFails("odom", "base_link", seconds(3), tf2.ErrExtrapolation),
			lookupFails("odom", "base_link", seconds(-1), tf2.ErrExtrapolation),
		},
	},
	{
		name:     "identity",
		location: locateSource(),
		checks: []check{
			lookup("base_link", "base_link", seconds(1), seconds(1), tf2.Identity()),
			lookup("odom", "odom", seconds(1), seconds(1), tf2.Identity()),
		},
	},
	{
		name:     "static-edge-holds-for-all-time",
		location: locateSource(),
		writes: []write{
			static("base_link", "laser", seconds(5), laserMount),
		},
		checks: []check{
			lookup("base_link", "laser", seconds(1000), seconds(1000), laserMount),
			lookup("base_link", "laser", tf2.Time(1), tf2.Time(1), laserMount),
			// Static-only chains hold at any time; Latest resolves to zero.
			lookup("base_link", "laser", tf2.Latest, 0, laserMount),
			lookup("odom", "laser", seconds(1), seconds(1), tf2.Transform{
				Translation: tf2.Vector3{X: 1.1, Z: 0.2},
				Rotation:    laserMount.Rotation,
			}),
		},
	},
	{
		name:     "inverse",
		location: locateSource(),
		checks: []check{
			roundTrip("odom", "laser", seconds(1.5)),
			roundTrip("base_link", "laser", seconds(1.5)),
		},
	},
	{
		name:     "duplicate-timestamp-replaces-sample",
		location: locateSource(),
		writes: []write{
			dynamic("odom", "base_link", seconds(2), translation(5, 0, 0)),
			unchanged(dynamic("odom", "base_link", seconds(2), translation(5, 0, 0))),
		},
		checks: []check{
			lookup("odom", "base_link", seconds(2), seconds(2), translation(5, 0, 0)),
			lookup("odom", "base_link", seconds(1), seconds(1), translation(2.5, 0, 0)),
		},
	},
	{
		name:     "disjoint-trees",
		location: locateSource(),
		writes: []write{
			dynamic("world", "map", seconds(1), translation(0, 0, 0)),
		},
		checks: []check{
			lookupFails("odom", "map", seconds(1), tf2.ErrConnectivity),
			lookupFails("laser", "world", seconds(1), tf2.ErrConnectivity),
		},
	},
	{
		name:     "unknown-frame",
		location: locateSource(),
		checks: []check{
			lookupFails("nowhere", "odom", seconds(1), tf2.ErrLookup),
			lookupFails("odom", "nowhere", seconds(1), tf2.ErrLookup),
			lookupFails("", "odom", seconds(1), tf2.ErrLookup),
		},
	},
	{
		name:     "invalid-writes-leave-no-trace",
		location: locateSource(),
		writes: []write{
			rejected(dynamic("map", "map", seconds(1), tf2.Identity())),
			rejected(dynamic("map", "", seconds(1), tf2.Identity())),
			rejected(dynamic("", "bogus", seconds(1), tf2.Identity())),
			rejected(dynamic("/map", "bogus", seconds(1), tf2.Identity())),
			rejected(dynamic("map", "bogus", seconds(1), translation(math.NaN(), 0, 0))),
			rejected(dynamic("map", "bogus", seconds(1), translation(0, math.Inf(1), 0))),
			rejected(dynamic("map", "bogus", seconds(1), tf2.Transform{Rotation: tf2.Quaternion{W: 2}})),
			rejected(dynamic("map", "bogus", seconds(1), tf2.Transform{})),
			// odom is an ancestor of laser.
			rejected(dynamic("laser", "odom", seconds(1), tf2.Identity())),
		},
		checks: []check{
			lookupFails("bogus", "map", seconds(1), tf2.ErrLookup),
			lookup("odom", "laser", seconds(1), seconds(1), tf2.Transform{
				Translation: tf2.Vector3{X: 2.6, Z: 0.2},
				Rotation:    laserMount.Rotation,
			}),
		},
	},
	{
		name:     "reparent",
		location: locateSource(),
		writes: []write{
			dynamic("map", "base_link", seconds(1), translation(7, 0, 0)),
			dynamic("map", "base_link", seconds(3), translation(9, 0, 0)),
		},
		checks: []check{
			lookupFails("odom", "base_link", seconds(1), tf2.ErrConnectivity),
			// The history recorded under odom is gone.
			lookupFails("map", "base_link", seconds(0.5), tf2.ErrExtrapolation),
			lookup("map", "base_link", seconds(2), seconds(2), translation(8, 0, 0)),
			lookup("world", "laser", seconds(1), seconds(1), tf2.Transform{
				Translation: tf2.Vector3{X: 7.1, Z: 0.2},
				Rotation:    laserMount.Rotation,
			}),
		},
	},
	{
		name:     "latest-common-time",
		location: locateSource(),
		checks: []check{
			lookup("map", "base_link", tf2.Latest, seconds(3), translation(9, 0, 0)),
			// world to map has a single sample at 1s.
			lookup("world", "base_link", tf2.Latest, seconds(1), translation(7, 0, 0)),
		},
	},
	{
		name:     "bridge-through-fixed-frame",
		location: locateSource(),
		checks: []check{
			lookupFull("base_link", seconds(3), "base_link", seconds(1), "map", translation(-2, 0, 0)),
			// The laser is rotated a quarter turn about Z relative to the base.
			lookupFull("laser", seconds(3), "laser", seconds(1), "map", translation(0, 2, 0)),
			lookupFull("base_link", seconds(1), "laser", seconds(1), "map", laserMount),
			lookupFullFails("base_link", seconds(3), "base_link", seconds(1), "odom", tf2.ErrConnectivity),
			lookupFullFails("base_link", seconds(4), "base_link", seconds(1), "map", tf2.ErrExtrapolation),
			lookupFullFails("base_link", seconds(3), "base_link", seconds(1), "nowhere", tf2.ErrLookup),
		},
	},
	{
		name:     "retention-window",
		location: locateSource(),
		writes: []write{
			dynamic("map", "base_link", seconds(20), translation(0, 0, 0)),
		},
		checks: []check{
			lookupFails("map", "base_link", seconds(3), tf2.ErrExtrapolation),
			lookup("map", "laser", seconds(20), seconds(20), laserMount),
			lookup("base_link", "laser", seconds(1), seconds(1), laserMount),
		},
	},
	{
		// A simulated clock starts at zero: zero is a stamp like any other.
		name:     "zero-stamp",
		location: locateSource(),
		writes: []write{
			dynamic("sim", "arm", seconds(0), translation(0, 0, 0)),
			dynamic("sim", "arm", seconds(2), translation(2, 0, 0)),
			dynamic("arm", "gripper", seconds(0), translation(0, 1, 0)),
		},
		checks: []check{
			lookup("sim", "arm", seconds(0), seconds(0), translation(0, 0, 0)),
			lookup("sim", "arm", tf2.Latest, seconds(2), translation(2, 0, 0)),
			// The latest common time of the chain is zero, where arm is at the origin.
			lookup("sim", "gripper", tf2.Latest, seconds(0), translation(0, 1, 0)),
			lookup("sim", "gripper", seconds(0), seconds(0), translation(0, 1, 0)),
			lookupFails("sim", "gripper", seconds(1), tf2.ErrExtrapolation),
			canTransform("sim", "gripper", tf2.Latest),
		},
	},
}

// Run runs the test-suite against tr, which must be empty, retain dynamic
// samples for the default 10 seconds, and reject extrapolation.
//
// The test cases run sequentially on the same buffer: each case builds on the
// frames written by the previous ones. Hence, a test case cannot run if the
// previous case had failed.
func Run(t *testing.T, tr tf2.Transformer) {
	for _, c := range cases {
		// We encourage developers to read the source code directly, especially when
		// failures are not clear enough.
		t.Logf("Read the source for test-case %v at %v", c.name, c.location)
		for i, w := range c.writes {
			changed, err := tr.SetTransform(w.transform, "tf2test", w.static)
			switch {
			case w.err != nil && !errors.Is(err, w.err):
				t.Fatalf("SetTransform(%v) write #%d = %v, want an error wrapping %v", c.name, i, err, w.err)
			case w.err == nil && err != nil:
				t.Fatalf("SetTransform(%v) write #%d failed: %v", c.name, i, err)
			case changed != w.changed:
				t.Fatalf("SetTransform(%v) write #%d = %v, want %v", c.name, i, changed, w.changed)
			}
		}
		for _, check := range c.checks {
			if problem := check(tr); problem != "" {
				t.Errorf("Check %v: %v", c.name, problem)
			}
		}
		if t.Failed() {
			t.FailNow()
		}
	}
}

// The mount of the laser on the robot base: slightly forward and up, rotated a
// quarter turn about Z.
var laserMount = tf2.Transform{
	Translation: tf2.Vector3{X: 0.1, Z: 0.2},
	Rotation:    tf2.Quaternion{Z: math.Sqrt2 / 2, W: math.Sqrt2 / 2},
}

func seconds(s float64) tf2.Time { return tf2.FromSeconds(s) }

func translation(x, y, z float64) tf2.Transform {
	return tf2.Transform{
		Translation: tf2.Vector3{X: x, Y: y, Z: z},
		Rotation:    tf2.IdentityQuaternion(),
	}
}

func dynamic(parent, child string, stamp tf2.Time, t tf2.Transform) write {
	return write{transform: stamped(parent, child, stamp, t), changed: true}
}

func static(parent, child string, stamp tf2.Time, t tf2.Transform) write {
	return write{transform: stamped(parent, child, stamp, t), static: true, changed: true}
}

// unchanged expects w to be a re-send of an already stored sample.
func unchanged(w write) write {
	w.changed = false
	return w
}

// rejected expects w to be rejected as an invalid argument.
func rejected(w write) write {
	w.changed = false
	w.err = tf2.ErrInvalidArgument
	return w
}

func stamped(parent, child string, stamp tf2.Time, t tf2.Transform) tf2.TransformStamped {
	return tf2.TransformStamped{
		Header:       tf2.Header{Stamp: stamp, FrameID: parent},
		ChildFrameID: child,
		Transform:    t,
	}
}

// Call this function to set the location of every test-case in the source file.
// The returned string is used to guide developers of transform buffers to the
// appropriate test-case.
func locateSource() (path string) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		panic("runtime.Caller failed")
	}
	return fmt.Sprintf("%v:%v", file, line)
}

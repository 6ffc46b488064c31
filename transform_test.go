package tf2

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// yaw returns the rotation of angle radians about Z.
func yaw(angle float64) Quaternion {
	return Quaternion{Z: math.Sin(angle / 2), W: math.Cos(angle / 2)}
}

func TestTransformApply(t *testing.T) {
	tests := []struct {
		Name      string
		Transform Transform
		Point     Vector3
		Want      Vector3
	}{
		{
			Name:      "identity",
			Transform: Identity(),
			Point:     Vector3{X: 1, Y: 2, Z: 3},
			Want:      Vector3{X: 1, Y: 2, Z: 3},
		},
		{
			Name:      "translation",
			Transform: Transform{Translation: Vector3{X: 1}, Rotation: IdentityQuaternion()},
			Point:     Vector3{Y: 1},
			Want:      Vector3{X: 1, Y: 1},
		},
		{
			Name:      "quarter-turn",
			Transform: Transform{Rotation: yaw(math.Pi / 2)},
			Point:     Vector3{X: 1},
			Want:      Vector3{Y: 1},
		},
		{
			Name:      "rotation-then-translation",
			Transform: Transform{Translation: Vector3{Z: 1}, Rotation: yaw(math.Pi)},
			Point:     Vector3{X: 1, Y: 1},
			Want:      Vector3{X: -1, Y: -1, Z: 1},
		},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.Want, tt.Transform.Apply(tt.Point), approx); diff != "" {
			t.Errorf("%s: Apply(%v) mismatch (-want +got):\n%s", tt.Name, tt.Point, diff)
		}
	}
}

func TestTransformComposeInverse(t *testing.T) {
	a := Transform{Translation: Vector3{X: 1, Y: -2, Z: 0.5}, Rotation: yaw(0.3)}
	b := Transform{Translation: Vector3{X: -0.2, Z: 3}, Rotation: Quaternion{X: 0.5, Y: 0.5, Z: 0.5, W: 0.5}}
	p := Vector3{X: 0.7, Y: 0.1, Z: -4}

	// Composition applies the right-hand transform first.
	if diff := cmp.Diff(a.Apply(b.Apply(p)), a.Compose(b).Apply(p), approx); diff != "" {
		t.Errorf("a.Compose(b).Apply(p) differs from a.Apply(b.Apply(p)) (-want +got):\n%s", diff)
	}
	for _, tr := range []Transform{a, b, a.Compose(b)} {
		if diff := cmp.Diff(Identity(), tr.Compose(tr.Inverse()), approx); diff != "" {
			t.Errorf("%v composed with its inverse is not the identity (-want +got):\n%s", tr, diff)
		}
		if diff := cmp.Diff(p, tr.Inverse().Apply(tr.Apply(p)), approx); diff != "" {
			t.Errorf("%v inverse does not undo it (-want +got):\n%s", tr, diff)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Quaternion{Z: 2, W: 2}.Normalize()
	if diff := cmp.Diff(yaw(math.Pi/2), got, approx); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
	if got := (Quaternion{}).Normalize(); got != IdentityQuaternion() {
		t.Errorf("Normalize() of the zero quaternion = %v, want the identity", got)
	}
	if n := yaw(1).Norm(); math.Abs(n-1) > 1e-12 {
		t.Errorf("Norm() = %v, want 1", n)
	}
}

func TestInterpolate(t *testing.T) {
	a := Transform{Translation: Vector3{X: 0}, Rotation: yaw(0)}
	b := Transform{Translation: Vector3{X: 2, Y: 4}, Rotation: yaw(math.Pi / 2)}

	tests := []struct {
		Name  string
		A, B  Transform
		Ratio float64
		Want  Transform
	}{
		{
			Name:  "start",
			A:     a,
			B:     b,
			Ratio: 0,
			Want:  a,
		},
		{
			Name:  "end",
			A:     a,
			B:     b,
			Ratio: 1,
			Want:  b,
		},
		{
			Name:  "halfway",
			A:     a,
			B:     b,
			Ratio: 0.5,
			Want:  Transform{Translation: Vector3{X: 1, Y: 2}, Rotation: yaw(math.Pi / 4)},
		},
		{
			Name:  "quarter",
			A:     a,
			B:     b,
			Ratio: 0.25,
			Want:  Transform{Translation: Vector3{X: 0.5, Y: 1}, Rotation: yaw(math.Pi / 8)},
		},
		{
			// -q is the same rotation as q; the shortest arc goes through yaw(π/4).
			Name:  "antipodal-end",
			A:     a,
			B:     Transform{Rotation: Quaternion{Z: -math.Sin(math.Pi / 4), W: -math.Cos(math.Pi / 4)}},
			Ratio: 0.5,
			Want:  Transform{Rotation: yaw(math.Pi / 4)},
		},
		{
			Name:  "nearly-equal-rotations",
			A:     Transform{Rotation: yaw(0)},
			B:     Transform{Rotation: yaw(0.001)},
			Ratio: 0.5,
			Want:  Transform{Rotation: yaw(0.0005)},
		},
	}

	for _, tt := range tests {
		got := interpolate(tt.A, tt.B, tt.Ratio)
		if diff := cmp.Diff(tt.Want, got, cmpopts.EquateApprox(0, 1e-7)); diff != "" {
			t.Errorf("%s: interpolate() mismatch (-want +got):\n%s", tt.Name, diff)
		}
	}
}

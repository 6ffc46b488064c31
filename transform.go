package tf2

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vector3 is a translation (or a point) in metres.
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) vec() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

func vector3(v r3.Vec) Vector3 { return Vector3{X: v.X, Y: v.Y, Z: v.Z} }

// Quaternion is a rotation expressed as a unit quaternion. W is the scalar
// part.
type Quaternion struct {
	X, Y, Z, W float64
}

// IdentityQuaternion returns the rotation that does nothing.
func IdentityQuaternion() Quaternion { return Quaternion{W: 1} }

func (q Quaternion) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func quaternion(n quat.Number) Quaternion {
	return Quaternion{X: n.Imag, Y: n.Jmag, Z: n.Kmag, W: n.Real}
}

// Norm returns the Euclidean norm of q; a valid rotation has a norm of 1.
func (q Quaternion) Norm() float64 { return quat.Abs(q.number()) }

// Normalize returns q scaled to unit norm. The zero quaternion has no
// direction, so Normalize returns the identity for it.
func (q Quaternion) Normalize() Quaternion {
	return quaternion(normalize(q.number()))
}

// Transform is a rigid transform: a rotation followed by a translation. A
// Transform stored on a child-to-parent edge maps coordinates expressed in the
// child frame into the parent frame.
type Transform struct {
	Translation Vector3
	Rotation    Quaternion
}

// Identity returns the transform that maps every point onto itself.
func Identity() Transform {
	return Transform{Rotation: IdentityQuaternion()}
}

// Compose returns the transform t∘u, which applies u first and t second. If u
// maps frame C into frame B and t maps frame B into frame A, the result maps C
// into A.
//
// The rotation of the result is re-normalised to counter floating-point drift.
func (t Transform) Compose(u Transform) Transform {
	q := t.Rotation.number()
	return Transform{
		Translation: vector3(r3.Add(t.Translation.vec(), rotate(q, u.Translation.vec()))),
		Rotation:    quaternion(normalize(quat.Mul(q, u.Rotation.number()))),
	}
}

// Inverse returns the transform that undoes t.
func (t Transform) Inverse() Transform {
	inv := quat.Conj(normalize(t.Rotation.number()))
	return Transform{
		Translation: vector3(rotate(inv, r3.Scale(-1, t.Translation.vec()))),
		Rotation:    quaternion(inv),
	}
}

// Apply transforms the point p.
func (t Transform) Apply(p Vector3) Vector3 {
	return vector3(r3.Add(t.Translation.vec(), rotate(t.Rotation.number(), p.vec())))
}

func (t Transform) String() string {
	return fmt.Sprintf("translation [%g, %g, %g] rotation [%g, %g, %g, %g]",
		t.Translation.X, t.Translation.Y, t.Translation.Z,
		t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W)
}

// isFinite reports whether every component of t is a finite number.
func (t Transform) isFinite() bool {
	for _, f := range [...]float64{
		t.Translation.X, t.Translation.Y, t.Translation.Z,
		t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W,
	} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// rotate applies the unit quaternion q to v (q·v·q*).
func rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// Above this cosine the two rotations are so close that SLERP's division by
// sin(θ) loses precision; a normalised linear blend is used instead.
const slerpLinearThreshold = 0.9995

// slerp interpolates between the unit quaternions a and b along the shortest
// arc; ratio 0 yields a and ratio 1 yields b (or its antipode -b, which is the
// same rotation).
func slerp(a, b quat.Number, ratio float64) quat.Number {
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if dot < 0 {
		b = quat.Scale(-1, b)
		dot = -dot
	}
	if dot > slerpLinearThreshold {
		return normalize(quat.Add(a, quat.Scale(ratio, quat.Sub(b, a))))
	}
	theta := math.Acos(dot)
	sin := math.Sin(theta)
	wa := math.Sin((1-ratio)*theta) / sin
	wb := math.Sin(ratio*theta) / sin
	return normalize(quat.Add(quat.Scale(wa, a), quat.Scale(wb, b)))
}

// interpolate blends two transforms: linearly for the translation and by SLERP
// for the rotation.
func interpolate(a, b Transform, ratio float64) Transform {
	ta, tb := a.Translation.vec(), b.Translation.vec()
	return Transform{
		Translation: vector3(r3.Add(ta, r3.Scale(ratio, r3.Sub(tb, ta)))),
		Rotation:    quaternion(slerp(a.Rotation.number(), b.Rotation.number(), ratio)),
	}
}

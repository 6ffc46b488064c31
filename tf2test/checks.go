package tf2test

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/go-digitaltwin/tf2"
)

// A check is any function that returns unexpected problems with the state of
// the given tf2.Transformer.
type check func(tf2.Transformer) (problem string)

// Lookups compose floating-point transforms, so results are compared with a
// tolerance.
var approx = cmpopts.EquateApprox(0, 1e-9)

// Checks that LookupTransform(target, source, t) returns want, stamped at
// stamp.
func lookup(target, source string, t, stamp tf2.Time, want tf2.Transform) check {
	return func(tr tf2.Transformer) string {
		got, err := tr.LookupTransform(target, source, t)
		if err != nil {
			return fmt.Sprintf("LookupTransform(%q, %q, %v) failed: %v", target, source, t, err)
		}
		return diffStamped(fmt.Sprintf("LookupTransform(%q, %q, %v)", target, source, t), target, source, stamp, want, got)
	}
}

// Checks that LookupTransformFull returns want, stamped at targetTime.
func lookupFull(target string, targetTime tf2.Time, source string, sourceTime tf2.Time, fixed string, want tf2.Transform) check {
	return func(tr tf2.Transformer) string {
		call := fmt.Sprintf("LookupTransformFull(%q, %v, %q, %v, %q)", target, targetTime, source, sourceTime, fixed)
		got, err := tr.LookupTransformFull(target, targetTime, source, sourceTime, fixed)
		if err != nil {
			return fmt.Sprintf("%s failed: %v", call, err)
		}
		return diffStamped(call, target, source, targetTime, want, got)
	}
}

func diffStamped(call, target, source string, stamp tf2.Time, want tf2.Transform, got tf2.TransformStamped) string {
	w := tf2.TransformStamped{
		Header:       tf2.Header{Stamp: stamp, FrameID: target},
		ChildFrameID: source,
		Transform:    want,
	}
	if diff := cmp.Diff(w, got, approx); diff != "" {
		return fmt.Sprintf("%s mismatch (-want +got):\n%v", call, diff)
	}
	return ""
}

// Checks that LookupTransform(target, source, t) fails with an error wrapping
// the given sentinel, and that CanTransform agrees with a non-empty reason.
func lookupFails(target, source string, t tf2.Time, sentinel error) check {
	return func(tr tf2.Transformer) string {
		if _, err := tr.LookupTransform(target, source, t); !errors.Is(err, sentinel) {
			return fmt.Sprintf("LookupTransform(%q, %q, %v) = %v, want an error wrapping %v", target, source, t, err, sentinel)
		}
		if ok, reason := tr.CanTransform(target, source, t); ok || reason == "" {
			return fmt.Sprintf("CanTransform(%q, %q, %v) = (%v, %q), want false with a reason", target, source, t, ok, reason)
		}
		return ""
	}
}

// Checks that LookupTransformFull fails with an error wrapping the given
// sentinel, and that CanTransformFull agrees with a non-empty reason.
func lookupFullFails(target string, targetTime tf2.Time, source string, sourceTime tf2.Time, fixed string, sentinel error) check {
	return func(tr tf2.Transformer) string {
		call := fmt.Sprintf("(%q, %v, %q, %v, %q)", target, targetTime, source, sourceTime, fixed)
		if _, err := tr.LookupTransformFull(target, targetTime, source, sourceTime, fixed); !errors.Is(err, sentinel) {
			return fmt.Sprintf("LookupTransformFull%s = %v, want an error wrapping %v", call, err, sentinel)
		}
		if ok, reason := tr.CanTransformFull(target, targetTime, source, sourceTime, fixed); ok || reason == "" {
			return fmt.Sprintf("CanTransformFull%s = (%v, %q), want false with a reason", call, ok, reason)
		}
		return ""
	}
}

// Checks that CanTransform(target, source, t) succeeds.
func canTransform(target, source string, t tf2.Time) check {
	return func(tr tf2.Transformer) string {
		if ok, reason := tr.CanTransform(target, source, t); !ok {
			return fmt.Sprintf("CanTransform(%q, %q, %v) = false (%s), want true", target, source, t, reason)
		}
		return ""
	}
}

// Checks that looking a and b up in both directions yields inverse transforms:
// composing them gives the identity.
func roundTrip(a, b string, t tf2.Time) check {
	return func(tr tf2.Transformer) string {
		ab, err := tr.LookupTransform(a, b, t)
		if err != nil {
			return fmt.Sprintf("LookupTransform(%q, %q, %v) failed: %v", a, b, t, err)
		}
		ba, err := tr.LookupTransform(b, a, t)
		if err != nil {
			return fmt.Sprintf("LookupTransform(%q, %q, %v) failed: %v", b, a, t, err)
		}
		if diff := cmp.Diff(tf2.Identity(), ab.Transform.Compose(ba.Transform), approx); diff != "" {
			return fmt.Sprintf("%q to %q composed with its inverse is not the identity (-want +got):\n%v", a, b, diff)
		}
		return ""
	}
}

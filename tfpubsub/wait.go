package tfpubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-digitaltwin/tf2"
)

// ErrTimeout is returned by WaitForTransform when the transform did not become
// available in time.
var ErrTimeout = errors.New("timed out waiting for transform")

// DefaultPollInterval is how often WaitForTransform polls when given a
// non-positive interval.
const DefaultPollInterval = 10 * time.Millisecond

// A CanTransformer reports whether a lookup would succeed. *tf2.Buffer
// implements it.
type CanTransformer interface {
	CanTransform(target, source string, t tf2.Time) (bool, string)
}

// WaitForTransform polls b every poll interval until a lookup from source to
// target at time t would succeed, or ctx is done. It is meant for callers that
// start querying while transforms are still arriving. A non-positive poll
// interval means DefaultPollInterval.
//
// When ctx ends first, WaitForTransform returns an error wrapping ErrTimeout
// with the last reason the lookup was not possible.
func WaitForTransform(ctx context.Context, b CanTransformer, target, source string, t tf2.Time, poll time.Duration) error {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		ok, reason := b.CanTransform(target, source, t)
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w from %q to %q: %s", ErrTimeout, source, target, reason)
		case <-ticker.C:
		}
	}
}

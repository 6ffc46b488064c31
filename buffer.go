package tf2

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// DefaultCacheTime is how long dynamic samples are retained, relative to the
// newest sample of their edge, unless configured otherwise with WithCacheTime.
const DefaultCacheTime = 10 * time.Second

// QuaternionTolerance is how far the squared norm of an incoming rotation may
// deviate from 1 before SetTransform rejects it. Rotations within tolerance are
// normalised before they are stored.
const QuaternionTolerance = 1e-2

// Setter is implemented by anything that ingests stamped transforms.
type Setter interface {
	SetTransform(t TransformStamped, authority string, isStatic bool) (bool, error)
}

// Transformer is the complete query-and-ingest contract of a transform buffer.
// *Buffer implements it; the tf2test package checks implementations against
// it.
type Transformer interface {
	Setter
	LookupTransform(target, source string, t Time) (TransformStamped, error)
	LookupTransformFull(target string, targetTime Time, source string, sourceTime Time, fixed string) (TransformStamped, error)
	CanTransform(target, source string, t Time) (bool, string)
	CanTransformFull(target string, targetTime Time, source string, sourceTime Time, fixed string) (bool, string)
}

// A Buffer stores the frame forest and the per-edge history of transforms, and
// answers lookups across it.
//
// A single mutex guards the whole structure for both reads and writes so that
// every lookup resolves its path against a consistent tree, even while
// transforms are inserted concurrently. A Buffer is safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	frames frameRegistry
	closed bool

	cacheTime time.Duration
	policy    ExtrapolationPolicy
	logger    *slog.Logger
}

// An Option configures a Buffer.
type Option func(*Buffer)

// WithCacheTime sets the retention window of dynamic edges. Non-positive
// durations are ignored.
func WithCacheTime(d time.Duration) Option {
	return func(b *Buffer) {
		if d > 0 {
			b.cacheTime = d
		}
	}
}

// WithExtrapolation selects the policy applied when a lookup falls outside the
// retained samples of an edge. The default is ExtrapolateStrict.
func WithExtrapolation(p ExtrapolationPolicy) Option {
	return func(b *Buffer) { b.policy = p }
}

// WithLogger sets the logger the buffer reports anomalies to. The default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Buffer) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuffer returns an empty, ready-to-use Buffer.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		frames:    newFrameRegistry(),
		cacheTime: DefaultCacheTime,
		policy:    ExtrapolateStrict,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CacheTime returns the retention window of dynamic edges.
func (b *Buffer) CacheTime() time.Duration { return b.cacheTime }

// SetTransform stores the transform from t.ChildFrameID to t.Header.FrameID at
// t.Header.Stamp. Static transforms are valid for all time and never evicted.
// The authority names the source of the transform, for diagnostics only.
//
// SetTransform returns true if the buffer changed. It returns false, and a nil
// error, when the exact same sample is already stored (e.g. a re-sent message).
// Any malformed input fails with an ErrInvalidArgument error, in which case the
// buffer is left unmodified.
//
// Sending a transform for an existing child frame with a different parent
// re-parents the child: the edge is replaced and its previous history is
// discarded. Likewise, switching a child between static and dynamic replaces
// its edge; the last write decides the mode.
func (b *Buffer) SetTransform(t TransformStamped, authority string, isStatic bool) (changed bool, err error) {
	defer func() {
		if err != nil {
			measureRejection(err)
		}
	}()

	child, parent := t.ChildFrameID, t.Header.FrameID
	if err := validateTransform(t); err != nil {
		return false, err
	}
	s := sample{
		stamp: t.Header.Stamp,
		transform: Transform{
			Translation: t.Transform.Translation,
			Rotation:    t.Transform.Rotation.Normalize(),
		},
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false, ErrClosed
	}

	// Every check must pass before the registry is touched, so that failed
	// writes leave no trace (not even new frames).
	if childID, ok := b.frames.lookup(child); ok {
		if parentID, ok := b.frames.lookup(parent); ok && b.frames.isAncestor(childID, parentID) {
			return false, errorf(KindInvalidArgument,
				"cannot set transform from frame [%s] to frame [%s]: [%s] is already a descendant of [%s], which would create a cycle",
				child, parent, parent, child)
		}
	}
	childID, err := b.frames.intern(child)
	if err != nil {
		return false, err
	}
	parentID, err := b.frames.intern(parent)
	if err != nil {
		return false, err
	}

	f := b.frames.get(childID)
	switch {
	case f.cache == nil:
		// First edge of this child (or the first since Clear).
	case f.parent != parentID:
		b.logger.Info("Re-parenting frame, discarding its history",
			slog.String("frame", child),
			slog.String("old-parent", b.frames.name(f.parent)),
			slog.String("new-parent", parent),
			slog.String("authority", authority),
		)
		f.cache = nil
	case f.cache.isStatic() != isStatic:
		b.logger.Info("Switching frame between static and dynamic, discarding its history",
			slog.String("frame", child),
			slog.Bool("static", isStatic),
			slog.String("authority", authority),
		)
		f.cache = nil
	}
	if f.cache == nil {
		if isStatic {
			f.cache = &staticCache{}
		} else {
			f.cache = newTimeCache(b.cacheTime)
		}
	}
	f.parent = parentID

	changed, evicted := f.cache.insert(s)
	measureEvictions(evicted)
	if !changed {
		b.logger.Debug("Ignoring transform identical to the stored one",
			slog.String("frame", child),
			slog.String("parent", parent),
			slog.Any("stamp", s.stamp),
		)
		return false, nil
	}
	f.authority = authority

	if !isStatic {
		if newest, _ := f.cache.(*timeCache).newest(); s.stamp < newest.Add(-b.cacheTime) {
			// Too old to be retained: the sample was evicted as soon as it was
			// inserted.
			b.logger.Warn("Transform is older than the retention window; it was dropped",
				slog.String("frame", child),
				slog.String("parent", parent),
				slog.Any("stamp", s.stamp),
				slog.Any("newest", newest),
				slog.String("authority", authority),
			)
		}
	}
	return true, nil
}

// validateTransform rejects transforms that cannot be stored.
func validateTransform(t TransformStamped) error {
	child, parent := t.ChildFrameID, t.Header.FrameID
	if err := validateFrameName(child); err != nil {
		return errorf(KindInvalidArgument, "child frame: %v", err)
	}
	if err := validateFrameName(parent); err != nil {
		return errorf(KindInvalidArgument, "parent frame: %v", err)
	}
	if child == parent {
		return errorf(KindInvalidArgument, "cannot set transform from frame [%s] to itself", child)
	}
	if t.Header.Stamp.IsLatest() {
		return errorf(KindInvalidArgument, "transform from frame [%s] to frame [%s] is stamped Latest, which is reserved for queries", child, parent)
	}
	if !t.Transform.isFinite() {
		return errorf(KindInvalidArgument, "transform from frame [%s] to frame [%s] contains non-finite values: %v", child, parent, t.Transform)
	}
	q := t.Transform.Rotation
	if n2 := q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W; math.Abs(n2-1) > QuaternionTolerance {
		return errorf(KindInvalidArgument, "transform from frame [%s] to frame [%s] has an invalid quaternion (squared norm %g)", child, parent, n2)
	}
	return nil
}

// Close releases the buffer. Every frame, edge and sample is dropped at once,
// and every later call fails with ErrClosed (queries report false). Close is
// idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.frames = frameRegistry{}
	return nil
}

// Clear drops every dynamic sample, turning each dynamically attached frame
// into a root until new transforms arrive. Static edges are kept, as are frame
// IDs.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id := FrameID(1); int(id) <= b.frames.len(); id++ {
		if c := b.frames.get(id).cache; c != nil && !c.isStatic() {
			b.frames.detach(id)
		}
	}
}

// Frames returns the names of all frames known to the buffer, in the order
// they were first seen.
func (b *Buffer) Frames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	names := make([]string, 0, b.frames.len())
	for id := FrameID(1); int(id) <= b.frames.len(); id++ {
		names = append(names, b.frames.name(id))
	}
	return names
}

// FrameExists reports whether the buffer has seen the named frame.
func (b *Buffer) FrameExists(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	_, ok := b.frames.lookup(name)
	return ok
}

// Parent returns the parent of the named frame. It returns false if the frame
// is unknown or is the root of its tree.
func (b *Buffer) Parent(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", false
	}
	id, ok := b.frames.lookup(name)
	if !ok {
		return "", false
	}
	p := b.frames.get(id).parent
	if p == noFrame {
		return "", false
	}
	return b.frames.name(p), true
}

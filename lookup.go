package tf2

import "time"

// A chain is the resolved path between two frames: both frames, their lowest
// common ancestor, and the frames whose edges lead from each of them up to the
// ancestor (the ancestor itself excluded).
type chain struct {
	target, source FrameID
	ancestor       FrameID
	targetPath     []FrameID
	sourcePath     []FrameID
}

// edges calls yield for every frame whose edge to its parent lies on the chain.
func (c chain) edges(yield func(FrameID) bool) {
	for _, id := range c.sourcePath {
		if !yield(id) {
			return
		}
	}
	for _, id := range c.targetPath {
		if !yield(id) {
			return
		}
	}
}

// resolveFrameLocked returns the ID of a queried frame. The argument names the
// parameter of op the frame was passed as, for the diagnostic.
func (b *Buffer) resolveFrameLocked(op, argument, name string) (FrameID, error) {
	if b.closed {
		return noFrame, ErrClosed
	}
	id, ok := b.frames.lookup(name)
	if !ok {
		if name == "" {
			return noFrame, errorf(KindLookup, "Invalid argument passed to %s argument %s: frame names cannot be empty", op, argument)
		}
		return noFrame, errorf(KindLookup, "%q passed to %s argument %s does not exist.", name, op, argument)
	}
	return id, nil
}

// chainLocked resolves the path from target to source.
func (b *Buffer) chainLocked(target, source FrameID) (chain, error) {
	c := chain{target: target, source: source}

	targetPath := b.frames.pathToRoot(target)
	depth := make(map[FrameID]int, len(targetPath))
	for i, id := range targetPath {
		depth[id] = i
	}
	sourcePath := b.frames.pathToRoot(source)
	for i, id := range sourcePath {
		if j, ok := depth[id]; ok {
			c.ancestor = id
			c.sourcePath = sourcePath[:i]
			c.targetPath = targetPath[:j]
			return c, nil
		}
	}
	return chain{}, errorf(KindConnectivity,
		"Could not find a connection between '%s' and '%s' because they are not part of the same tree. Tf has two or more unconnected trees.",
		b.frames.name(target), b.frames.name(source))
}

// latestLocked returns the latest time at which every dynamic edge of the chain
// has data: the oldest of their newest samples. It returns false for chains
// without dynamic edges.
func (b *Buffer) latestLocked(c chain) (Time, bool) {
	var latest Time
	found := false
	for id := range c.edges {
		tc, ok := b.frames.get(id).cache.(*timeCache)
		if !ok {
			continue
		}
		newest, ok := tc.newest()
		if !ok {
			continue
		}
		if !found || newest < latest {
			latest, found = newest, true
		}
	}
	return latest, found
}

// stampLocked resolves the time at which every edge of the chain is evaluated.
// The result is always a real stamp: Latest resolves to the latest common time
// of the chain, or to zero when only static edges (whose value does not depend
// on time) make up the chain.
func (b *Buffer) stampLocked(c chain, t Time) Time {
	if !t.IsLatest() {
		return t
	}
	if latest, ok := b.latestLocked(c); ok {
		return latest
	}
	return 0
}

// rangeErrorLocked turns the range error of the edge of child into an
// ExtrapolationException.
func (b *Buffer) rangeErrorLocked(child FrameID, err *rangeError) error {
	f := b.frames.get(child)
	return errorf(KindExtrapolation, "%s", err.describe(f.name, b.frames.name(f.parent)))
}

// checkLocked reports whether every edge of the chain can be evaluated at t,
// without evaluating any of them.
func (b *Buffer) checkLocked(c chain, t Time) error {
	for id := range c.edges {
		if err := b.frames.get(id).cache.check(t, b.policy); err != nil {
			return b.rangeErrorLocked(id, err)
		}
	}
	return nil
}

// composeLocked evaluates the chain at t, returning the transform mapping
// source coordinates into the target frame.
func (b *Buffer) composeLocked(c chain, t Time) (Transform, error) {
	up := func(path []FrameID) (Transform, error) {
		acc := Identity()
		for _, id := range path {
			edge, err := b.frames.get(id).cache.at(t, b.policy)
			if err != nil {
				return Transform{}, b.rangeErrorLocked(id, err)
			}
			acc = edge.Compose(acc)
		}
		return acc, nil
	}
	ancestorFromSource, err := up(c.sourcePath)
	if err != nil {
		return Transform{}, err
	}
	ancestorFromTarget, err := up(c.targetPath)
	if err != nil {
		return Transform{}, err
	}
	return ancestorFromTarget.Inverse().Compose(ancestorFromSource), nil
}

// LookupTransform returns the transform mapping coordinates of the source frame
// into the target frame at time t. Latest evaluates the chain at the
// latest time at which all of its edges have data.
//
// LookupTransform fails with an ErrLookup error if either frame is unknown, an
// ErrConnectivity error if the frames belong to different trees, and an
// ErrExtrapolation error if some edge on the path holds no data at t.
func (b *Buffer) LookupTransform(target, source string, t Time) (ts TransformStamped, err error) {
	const op = "lookupTransform"
	defer func(start time.Time) { measureLookup(op, err, time.Since(start)) }(time.Now())

	b.mu.Lock()
	defer b.mu.Unlock()

	c, stamp, err := b.prepareLocked(op, "target_frame", target, "source_frame", source, t)
	if err != nil {
		return TransformStamped{}, err
	}
	tr, err := b.composeLocked(c, stamp)
	if err != nil {
		return TransformStamped{}, err
	}
	return TransformStamped{
		Header:       Header{Stamp: stamp, FrameID: target},
		ChildFrameID: source,
		Transform:    tr,
	}, nil
}

// prepareLocked resolves both frames, the chain between them, and the time at
// which the chain is evaluated.
func (b *Buffer) prepareLocked(op, targetArg, target, sourceArg, source string, t Time) (chain, Time, error) {
	targetID, err := b.resolveFrameLocked(op, targetArg, target)
	if err != nil {
		return chain{}, 0, err
	}
	sourceID, err := b.resolveFrameLocked(op, sourceArg, source)
	if err != nil {
		return chain{}, 0, err
	}
	c, err := b.chainLocked(targetID, sourceID)
	if err != nil {
		return chain{}, 0, err
	}
	return c, b.stampLocked(c, t), nil
}

// LookupTransformFull returns the transform mapping coordinates of the source
// frame at sourceTime into the target frame at targetTime. Both ends are
// expressed in the fixed frame, which is assumed not to move between the two
// times; that assumption is the caller's to make.
//
// The returned transform is stamped with the time at which the target side was
// evaluated. Failures are those of LookupTransform; a fixed frame unreachable
// from either end fails with an ErrConnectivity error.
func (b *Buffer) LookupTransformFull(target string, targetTime Time, source string, sourceTime Time, fixed string) (ts TransformStamped, err error) {
	const op = "lookupTransformFull"
	defer func(start time.Time) { measureLookup(op, err, time.Since(start)) }(time.Now())

	b.mu.Lock()
	defer b.mu.Unlock()

	sourceChain, sourceStamp, err := b.prepareLocked(op, "fixed_frame", fixed, "source_frame", source, sourceTime)
	if err != nil {
		return TransformStamped{}, err
	}
	targetChain, targetStamp, err := b.prepareLocked(op, "target_frame", target, "fixed_frame", fixed, targetTime)
	if err != nil {
		return TransformStamped{}, err
	}
	fixedFromSource, err := b.composeLocked(sourceChain, sourceStamp)
	if err != nil {
		return TransformStamped{}, err
	}
	targetFromFixed, err := b.composeLocked(targetChain, targetStamp)
	if err != nil {
		return TransformStamped{}, err
	}
	return TransformStamped{
		Header:       Header{Stamp: targetStamp, FrameID: target},
		ChildFrameID: source,
		Transform:    targetFromFixed.Compose(fixedFromSource),
	}, nil
}

// CanTransform reports whether LookupTransform would succeed for the same
// arguments. When it would not, the returned string explains why.
func (b *Buffer) CanTransform(target, source string, t Time) (bool, string) {
	const op = "canTransform"

	b.mu.Lock()
	defer b.mu.Unlock()

	c, stamp, err := b.prepareLocked(op, "target_frame", target, "source_frame", source, t)
	if err == nil {
		err = b.checkLocked(c, stamp)
	}
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

// CanTransformFull reports whether LookupTransformFull would succeed for the
// same arguments. When it would not, the returned string explains why.
func (b *Buffer) CanTransformFull(target string, targetTime Time, source string, sourceTime Time, fixed string) (bool, string) {
	const op = "canTransformFull"

	b.mu.Lock()
	defer b.mu.Unlock()

	sourceChain, sourceStamp, err := b.prepareLocked(op, "fixed_frame", fixed, "source_frame", source, sourceTime)
	if err == nil {
		err = b.checkLocked(sourceChain, sourceStamp)
	}
	if err != nil {
		return false, err.Error()
	}
	targetChain, targetStamp, err := b.prepareLocked(op, "target_frame", target, "fixed_frame", fixed, targetTime)
	if err == nil {
		err = b.checkLocked(targetChain, targetStamp)
	}
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

// LatestCommonTime returns the latest time at which a lookup between the two
// frames can be answered without extrapolation. It returns zero when the
// frames are connected through static edges only, as those hold at any time.
func (b *Buffer) LatestCommonTime(target, source string) (Time, error) {
	const op = "getLatestCommonTime"

	b.mu.Lock()
	defer b.mu.Unlock()

	_, stamp, err := b.prepareLocked(op, "target_frame", target, "source_frame", source, Latest)
	return stamp, err
}

// TransformPoint expresses p in the target frame, looking the transform up at
// the stamp of p.
func (b *Buffer) TransformPoint(target string, p PointStamped) (PointStamped, error) {
	ts, err := b.LookupTransform(target, p.FrameID, p.Stamp)
	if err != nil {
		return PointStamped{}, err
	}
	return PointStamped{
		Header: ts.Header,
		Point:  ts.Transform.Apply(p.Point),
	}, nil
}

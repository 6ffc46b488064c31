// Package tf2 provides a buffer of time-indexed coordinate-frame transforms; a
// robot keeps track of many coordinate frames (sensors, links, world
// references) whose relative poses change over time, and the buffer answers
// "what is the transform from frame A to frame B at time T" by digesting a
// continuous stream of stamped transform observations.
//
// Specifically, a Buffer maintains a forest of frames such that every frame has
// at most one parent; each child-to-parent edge stores either a short history
// of dynamic samples (bounded by a retention window) or a single static sample
// valid for all time. Lookups walk both frames up to their lowest common
// ancestor, interpolate every edge on the way at the requested time, and
// compose the chain into a single transform. A second form of lookup bridges two
// different times through a frame the caller assumes fixed over that interval.
//
// Failures are classified into a fixed set of kinds (see Kind) which callers
// inspect with errors.Is against ErrInvalidArgument, ErrLookup,
// ErrConnectivity and ErrExtrapolation.
//
// Transport of transforms between processes lives in the tfpubsub package; the
// tf2test package holds a conformance suite for Transformer implementations.
package tf2

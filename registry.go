package tf2

import "strings"

// FrameID is the dense integer identity of a frame within a single Buffer. IDs
// are assigned on first use, are stable for the lifetime of the buffer, and are
// never reused.
type FrameID uint32

// noFrame is the parent of every root frame. No frame is ever assigned ID 0.
const noFrame FrameID = 0

// A frame is a record of the frame arena. The edge to the parent frame (if any)
// is owned by the child: a root frame has parent noFrame and a nil cache.
type frame struct {
	name      string
	parent    FrameID
	cache     edgeCache
	authority string // who last wrote the edge; diagnostic only
}

// A frameRegistry maps frame names to IDs and keeps the frame arena indexed by
// FrameID. The parent fields of the arena make up the frame forest.
//
// The zero-value frameRegistry is not ready for use; call newFrameRegistry.
type frameRegistry struct {
	ids    map[string]FrameID
	frames []frame // frames[0] is the placeholder for noFrame
}

func newFrameRegistry() frameRegistry {
	return frameRegistry{
		ids:    make(map[string]FrameID),
		frames: make([]frame, 1),
	}
}

// validateFrameName rejects names that can never identify a frame.
func validateFrameName(name string) error {
	if name == "" {
		return errorf(KindInvalidArgument, "invalid frame name: frame names must not be empty")
	}
	if strings.HasPrefix(name, "/") {
		return errorf(KindInvalidArgument, "invalid frame name %q: frame names must not start with '/'", name)
	}
	return nil
}

// intern returns the ID of the named frame, creating the frame if this is its
// first use.
func (r *frameRegistry) intern(name string) (FrameID, error) {
	if id, ok := r.ids[name]; ok {
		return id, nil
	}
	if err := validateFrameName(name); err != nil {
		return noFrame, err
	}
	id := FrameID(len(r.frames))
	r.frames = append(r.frames, frame{name: name})
	r.ids[name] = id
	return id, nil
}

// lookup returns the ID of an existing frame.
func (r *frameRegistry) lookup(name string) (FrameID, bool) {
	id, ok := r.ids[name]
	return id, ok
}

func (r *frameRegistry) get(id FrameID) *frame { return &r.frames[id] }

func (r *frameRegistry) name(id FrameID) string { return r.frames[id].name }

// len returns the number of registered frames.
func (r *frameRegistry) len() int { return len(r.frames) - 1 }

// pathToRoot returns id followed by each of its ancestors, ending at the root
// of its tree.
func (r *frameRegistry) pathToRoot(id FrameID) []FrameID {
	path := []FrameID{id}
	for p := r.frames[id].parent; p != noFrame; p = r.frames[p].parent {
		path = append(path, p)
	}
	return path
}

// isAncestor reports whether candidate is id itself or one of its ancestors.
func (r *frameRegistry) isAncestor(candidate, id FrameID) bool {
	for f := id; f != noFrame; f = r.frames[f].parent {
		if f == candidate {
			return true
		}
	}
	return false
}

// detach turns a frame into a root, dropping the edge to its parent.
func (r *frameRegistry) detach(id FrameID) {
	f := &r.frames[id]
	f.parent = noFrame
	f.cache = nil
	f.authority = ""
}

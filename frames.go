package tf2

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrameInfo describes a frame, and the edge to its parent, at the moment a
// FrameTree was taken.
type FrameInfo struct {
	Name string
	// Parent is empty for the root of a tree.
	Parent string
	// Authority is whoever last wrote the edge to the parent.
	Authority string
	Static    bool
	// Oldest and Newest are the stamps of the samples retained on a dynamic
	// edge; both are zero for static edges and roots.
	Oldest, Newest Time
	// Samples is the number of samples retained on a dynamic edge.
	Samples int
}

func (f *FrameInfo) String() string { return f.Name }

// IsRoot reports whether the frame has no parent.
func (f *FrameInfo) IsRoot() bool { return f.Parent == "" }

// rate returns the average publishing rate of the edge in Hz, as estimated from
// its retained samples. Static edges report 10kHz by convention.
func (f *FrameInfo) rate() float64 {
	if f.Static {
		return 10000
	}
	return float64(f.Samples) / math.Max(f.Newest.Sub(f.Oldest).Seconds(), 0.0001)
}

// A FrameTree is a point-in-time copy of the frame forest of a Buffer. It is
// safe to traverse while the buffer keeps changing.
type FrameTree struct {
	frames   []FrameInfo // in the order the frames were first seen
	index    map[string]int
	roots    []int
	children [][]int
}

// Tree copies the current frame forest out of the buffer. A closed buffer
// yields an empty tree.
func (b *Buffer) Tree() *FrameTree {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree := &FrameTree{index: make(map[string]int)}
	if b.closed {
		return tree
	}
	n := b.frames.len()
	tree.frames = make([]FrameInfo, n)
	tree.children = make([][]int, n)
	for id := FrameID(1); int(id) <= n; id++ {
		f := b.frames.get(id)
		info := FrameInfo{Name: f.name, Authority: f.authority}
		if f.parent != noFrame {
			info.Parent = b.frames.name(f.parent)
			info.Static = f.cache.isStatic()
			info.Oldest, info.Newest, info.Samples = f.cache.span()
		}
		i := int(id) - 1
		tree.frames[i] = info
		tree.index[f.name] = i
		if f.parent == noFrame {
			tree.roots = append(tree.roots, i)
		} else {
			p := int(f.parent) - 1
			tree.children[p] = append(tree.children[p], i)
		}
	}
	return tree
}

// Len returns the number of frames in the tree.
func (t *FrameTree) Len() int { return len(t.frames) }

// Frame returns the named frame.
func (t *FrameTree) Frame(name string) (*FrameInfo, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return &t.frames[i], true
}

// Roots returns the names of the roots of every tree in the forest.
func (t *FrameTree) Roots() []string {
	names := make([]string, len(t.roots))
	for i, r := range t.roots {
		names[i] = t.frames[r].Name
	}
	return names
}

// ChildrenOf returns the names of the frames whose parent is the named frame.
func (t *FrameTree) ChildrenOf(name string) []string {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	names := make([]string, len(t.children[i]))
	for j, c := range t.children[i] {
		names[j] = t.frames[c].Name
	}
	return names
}

// String lists every edge of the tree, one per line.
func (t *FrameTree) String() string {
	var sb strings.Builder
	for _, f := range t.frames {
		if f.IsRoot() {
			continue
		}
		fmt.Fprintf(&sb, "Frame %s exists with parent %s.\n", f.Name, f.Parent)
	}
	return sb.String()
}

// frameYAML is the YAML rendering of an edge.
type frameYAML struct {
	Parent              string  `yaml:"parent"`
	Broadcaster         string  `yaml:"broadcaster"`
	Rate                float64 `yaml:"rate"`
	MostRecentTransform float64 `yaml:"most_recent_transform"`
	OldestTransform     float64 `yaml:"oldest_transform"`
	BufferLength        float64 `yaml:"buffer_length"`
}

// YAML renders every edge of the tree as a YAML mapping keyed by child frame.
func (t *FrameTree) YAML() (string, error) {
	edges := make(map[string]frameYAML, len(t.frames))
	for _, f := range t.frames {
		if f.IsRoot() {
			continue
		}
		edges[f.Name] = frameYAML{
			Parent:              f.Parent,
			Broadcaster:         f.Authority,
			Rate:                round3(f.rate()),
			MostRecentTransform: f.Newest.Seconds(),
			OldestTransform:     f.Oldest.Seconds(),
			BufferLength:        f.Newest.Sub(f.Oldest).Seconds(),
		}
	}
	if len(edges) == 0 {
		return "", nil
	}
	out, err := yaml.Marshal(edges)
	if err != nil {
		return "", fmt.Errorf("marshal frames: %w", err)
	}
	return string(out), nil
}

func round3(f float64) float64 { return math.Round(f*1000) / 1000 }

// AllFramesAsString lists every edge of the buffer, one per line, in the form
// "Frame child exists with parent parent.".
func (b *Buffer) AllFramesAsString() string { return b.Tree().String() }

// AllFramesAsYAML describes every edge of the buffer as a YAML mapping keyed by
// child frame: its parent, the authority that last wrote it, its estimated
// rate, and the range of the samples it retains.
func (b *Buffer) AllFramesAsYAML() (string, error) { return b.Tree().YAML() }

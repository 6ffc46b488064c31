package tf2

// A Visitor is called once for every frame of a FrameTree traversal, parents
// before their children.
//
// The Visitor returned by Visit is used for the children of the frame; after
// the last child it receives a nil frame, marking the end of that subtree.
// Returning nil prunes the subtree: its children are skipped and no nil frame
// is sent.
type Visitor interface {
	Visit(frame *FrameInfo) (w Visitor)
}

// Walk visits every tree of the forest, one root after the other in the order
// the roots were first seen by the buffer.
func Walk(v Visitor, tree *FrameTree) {
	for _, root := range tree.roots {
		walk(v, tree, root)
	}
}

// WalkSubtree visits the named frame and its descendants only, as Walk would.
// It visits nothing if the tree has no such frame.
func WalkSubtree(v Visitor, tree *FrameTree, name string) {
	if i, ok := tree.index[name]; ok {
		walk(v, tree, i)
	}
}

func walk(v Visitor, tree *FrameTree, i int) {
	w := v.Visit(&tree.frames[i])
	if w == nil {
		return
	}
	for _, child := range tree.children[i] {
		walk(w, tree, child)
	}
	w.Visit(nil)
}

// inspector adapts a function to a Visitor that keeps itself for the children
// as long as the function returns true.
type inspector func(frame *FrameInfo) bool

func (f inspector) Visit(frame *FrameInfo) Visitor {
	if f(frame) {
		return f
	}
	return nil
}

// Inspect calls f for every frame of the forest, parents first, and with nil
// at the end of each subtree. Returning false from f skips the descendants of
// the frame it was called with.
func Inspect(tree *FrameTree, f func(frame *FrameInfo) bool) {
	Walk(inspector(f), tree)
}

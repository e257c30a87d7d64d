package layout

import "sync/atomic"

// Direction is the axis along which a split node divides its space.
type Direction int

const (
	// Horizontal lays children out side by side.
	Horizontal Direction = iota
	// Vertical stacks children top to bottom.
	Vertical
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return "unknown"
	}
}

// DefaultSplitCap is the maximum number of siblings a same-direction split
// will accept before further same-direction splits become no-ops. This is a
// policy limit, not a structural invariant: collapse cascades may exceed it.
const DefaultSplitCap = 4

// PaneID identifies a pane for the lifetime of the process. IDs are issued
// monotonically by an Allocator and never reused.
type PaneID uint64

// Allocator issues pane IDs. Safe for concurrent use.
type Allocator struct {
	next atomic.Uint64
}

// NextID returns a fresh pane ID.
func (a *Allocator) NextID() PaneID {
	return PaneID(a.next.Add(1))
}

// Node is a layout tree node: either a *Pane leaf or a *SplitNode.
type Node interface {
	isNode()
}

// Pane is a leaf of the layout tree representing one session slot.
// The pane carries identity and optional seed metadata only; the live
// session bound to it lives in the session registry.
type Pane struct {
	ID PaneID
	// StartupDir seeds the working directory of the session created for
	// this pane. Empty means the backend default.
	StartupDir string
}

func (*Pane) isNode() {}

// SplitNode divides space among two or more children along one axis.
// Children are ordered. A split node is never directly nested inside a
// parent of the same direction.
type SplitNode struct {
	Dir      Direction
	Children []Node
}

func (*SplitNode) isNode() {}

// Split inserts a new pane next to target using the default sibling cap.
// See SplitCapped.
func Split(alloc *Allocator, root Node, target PaneID, dir Direction, startupDir string) (Node, *Pane) {
	return SplitCapped(alloc, root, target, dir, startupDir, DefaultSplitCap)
}

// SplitCapped inserts a new pane next to the target pane.
//
// When the target's immediate parent already splits in the requested
// direction, the new pane is inserted as a sibling immediately after the
// target, unless the parent already holds limit children, in which case the
// tree is returned unchanged and no pane is created. Otherwise the target
// leaf is wrapped in a fresh two-child split of the requested direction.
//
// An unknown target is a no-op. Exactly one pane is created per successful
// call and no ID is minted on a no-op. The returned pane inherits
// startupDir.
func SplitCapped(alloc *Allocator, root Node, target PaneID, dir Direction, startupDir string, limit int) (Node, *Pane) {
	if root == nil {
		return nil, nil
	}
	if limit < 2 {
		limit = DefaultSplitCap
	}
	return splitNode(alloc, root, target, dir, startupDir, limit)
}

func splitNode(alloc *Allocator, n Node, target PaneID, dir Direction, startupDir string, limit int) (Node, *Pane) {
	switch node := n.(type) {
	case *Pane:
		if node.ID != target {
			return n, nil
		}
		// Target is the root leaf: wrap it.
		created := &Pane{ID: alloc.NextID(), StartupDir: startupDir}
		return &SplitNode{Dir: dir, Children: []Node{node, created}}, created

	case *SplitNode:
		// Same-direction direct child: append a sibling after the target
		// instead of nesting.
		if node.Dir == dir {
			if idx := directChildIndex(node, target); idx >= 0 {
				if len(node.Children) >= limit {
					return n, nil
				}
				created := &Pane{ID: alloc.NextID(), StartupDir: startupDir}
				children := make([]Node, 0, len(node.Children)+1)
				children = append(children, node.Children[:idx+1]...)
				children = append(children, created)
				children = append(children, node.Children[idx+1:]...)
				return &SplitNode{Dir: node.Dir, Children: children}, created
			}
		}

		// Perpendicular direct child: wrap the leaf in a fresh two-child
		// split of the requested direction.
		if node.Dir != dir {
			if idx := directChildIndex(node, target); idx >= 0 {
				created := &Pane{ID: alloc.NextID(), StartupDir: startupDir}
				wrapped := &SplitNode{Dir: dir, Children: []Node{node.Children[idx], created}}
				return replaceChild(node, idx, wrapped), created
			}
		}

		// Recurse. Unaffected siblings are reused by reference.
		for i, child := range node.Children {
			sub, ok := child.(*SplitNode)
			if !ok {
				continue
			}
			newChild, created := splitNode(alloc, sub, target, dir, startupDir, limit)
			if created != nil {
				return replaceChild(node, i, newChild), created
			}
		}
		return n, nil

	default:
		return n, nil
	}
}

// directChildIndex returns the index of the pane with the given ID among
// the node's immediate children, or -1.
func directChildIndex(node *SplitNode, target PaneID) int {
	for i, child := range node.Children {
		if pane, ok := child.(*Pane); ok && pane.ID == target {
			return i
		}
	}
	return -1
}

// replaceChild returns a copy of node with the child at idx replaced.
// All other children are shared.
func replaceChild(node *SplitNode, idx int, child Node) *SplitNode {
	children := make([]Node, len(node.Children))
	copy(children, node.Children)
	children[idx] = child
	return &SplitNode{Dir: node.Dir, Children: children}
}

// Close removes the pane from the tree. A split node left with a single
// child collapses into that child, cascading upward through any number of
// ancestors. Returns nil when the whole tree would vanish; the tab layer
// must refuse that for a tab's last pane, but the function still computes
// it. An unknown pane ID returns the tree unchanged.
func Close(root Node, id PaneID) Node {
	if root == nil {
		return nil
	}
	return closeNode(root, id)
}

func closeNode(n Node, id PaneID) Node {
	switch node := n.(type) {
	case *Pane:
		if node.ID == id {
			return nil
		}
		return n

	case *SplitNode:
		changed := false
		children := make([]Node, 0, len(node.Children))
		for _, child := range node.Children {
			newChild := closeNode(child, id)
			if newChild != child {
				changed = true
			}
			if newChild != nil {
				children = append(children, newChild)
			}
		}
		if !changed {
			return n
		}
		switch len(children) {
		case 0:
			return nil
		case 1:
			return children[0]
		}
		return &SplitNode{Dir: node.Dir, Children: flattenSameDir(node.Dir, children)}

	default:
		return n
	}
}

// flattenSameDir splices children that are split nodes of the same
// direction into their parent. Collapse can surface such a node (a
// perpendicular split reduced to one child), and splicing keeps the
// no-same-direction-nesting invariant after every mutation.
func flattenSameDir(dir Direction, children []Node) []Node {
	flat := make([]Node, 0, len(children))
	for _, child := range children {
		if sub, ok := child.(*SplitNode); ok && sub.Dir == dir {
			flat = append(flat, sub.Children...)
			continue
		}
		flat = append(flat, child)
	}
	return flat
}

// FindAllPanes returns every pane in the tree, depth-first with children in
// order. This is the canonical ordering for next/previous navigation.
func FindAllPanes(root Node) []*Pane {
	var panes []*Pane
	collectPanes(root, &panes)
	return panes
}

func collectPanes(n Node, out *[]*Pane) {
	switch node := n.(type) {
	case *Pane:
		*out = append(*out, node)
	case *SplitNode:
		for _, child := range node.Children {
			collectPanes(child, out)
		}
	}
}

// FindPane returns the pane with the given ID, or nil if absent.
func FindPane(root Node, id PaneID) *Pane {
	for _, pane := range FindAllPanes(root) {
		if pane.ID == id {
			return pane
		}
	}
	return nil
}

// CountPanes returns the number of panes in the tree.
func CountPanes(root Node) int {
	return len(FindAllPanes(root))
}

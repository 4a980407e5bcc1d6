package profile

import (
	"maps"
	"slices"

	apperrors "github.com/profvis/pkg/errors"
	"github.com/profvis/pkg/model"
)

const (
	// RootIndex is the arena index of the synthetic depth-0 root.
	RootIndex = 0
	// NoParent marks the root's parent slot.
	NoParent = -1
)

// Node is a call-tree vertex stored in a Tree arena.
type Node struct {
	model.Frame

	// LastTime is the last tick the node covers. Before consolidation it
	// equals Time.
	LastTime int

	Parent   int
	Children []int

	// DepthCollapsed is nil when the node is hidden in the collapsed view.
	// Set by CollapseDepths.
	DepthCollapsed *int
}

// Duration returns the node's length in milliseconds.
func (n *Node) Duration() float64 {
	return n.EndTime - n.StartTime
}

// Tree is an arena of nodes addressed by index. Nodes[RootIndex] is the
// synthetic root spanning the whole capture.
type Tree struct {
	Nodes []Node
}

// Root returns the synthetic root.
func (t *Tree) Root() *Node {
	return &t.Nodes[RootIndex]
}

// Node returns the node at index i.
func (t *Tree) Node(i int) *Node {
	return &t.Nodes[i]
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Empty reports whether the tree holds nothing but its root.
func (t *Tree) Empty() bool {
	return len(t.Nodes) <= 1
}

// Walk visits nodes in depth-first pre-order, children in stored order.
// Returning false from fn skips the node's subtree.
func (t *Tree) Walk(fn func(idx int, n *Node) bool) {
	if len(t.Nodes) == 0 {
		return
	}
	stack := []int{RootIndex}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.Nodes[idx]
		if !fn(idx, n) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// HasAncestor reports whether any proper ancestor of idx, root excluded,
// satisfies match.
func (t *Tree) HasAncestor(idx int, match func(n *Node) bool) bool {
	for p := t.Nodes[idx].Parent; p != NoParent && p != RootIndex; p = t.Nodes[p].Parent {
		if match(&t.Nodes[p]) {
			return true
		}
	}
	return false
}

// MaxDepth returns the deepest node depth in the tree.
func (t *Tree) MaxDepth() int {
	maxDepth := 0
	for i := range t.Nodes {
		if t.Nodes[i].Depth > maxDepth {
			maxDepth = t.Nodes[i].Depth
		}
	}
	return maxDepth
}

func (t *Tree) addNode(n Node) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, n)
	if n.Parent != NoParent {
		t.Nodes[n.Parent].Children = append(t.Nodes[n.Parent].Children, idx)
	}
	return idx
}

func newRoot(start, end float64, firstTime, lastTime int) Node {
	return Node{
		Frame: model.Frame{
			Sample:    model.Sample{Time: firstTime, Depth: 0},
			StartTime: start,
			EndTime:   end,
		},
		LastTime: lastTime,
		Parent:   NoParent,
	}
}

// BuildTree groups frames by tick, orders each group by depth and links each
// frame to the next-shallower frame of the same tick. Depth-1 frames hang off
// the synthetic root in tick order.
func BuildTree(frames []model.Frame) (*Tree, error) {
	groups := make(map[int][]int)
	for i := range frames {
		groups[frames[i].Time] = append(groups[frames[i].Time], i)
	}
	times := slices.Sorted(maps.Keys(groups))

	t := &Tree{Nodes: make([]Node, 0, len(frames)+1)}
	if len(times) == 0 {
		t.addNode(newRoot(0, 0, 0, 0))
		return t, nil
	}

	first := groups[times[0]][0]
	last := groups[times[len(times)-1]][0]
	t.addNode(newRoot(frames[first].StartTime, frames[last].EndTime, times[0], times[len(times)-1]))

	for _, tick := range times {
		group := groups[tick]
		slices.SortStableFunc(group, func(a, b int) int {
			return frames[a].Depth - frames[b].Depth
		})

		if d := frames[group[0]].Depth; d != 1 {
			return nil, apperrors.MalformedProfile("time %d has no depth-1 frame (shallowest depth is %d)", tick, d)
		}

		parent := RootIndex
		for j, fi := range group {
			f := frames[fi]
			if j > 0 {
				prev := frames[group[j-1]].Depth
				switch {
				case f.Depth == prev:
					return nil, apperrors.MalformedProfile("time %d has more than one frame at depth %d", tick, f.Depth)
				case f.Depth != prev+1:
					return nil, apperrors.MalformedProfile("time %d skips from depth %d to %d", tick, prev, f.Depth)
				}
			}
			parent = t.addNode(Node{
				Frame:    f,
				LastTime: f.Time,
				Parent:   parent,
			})
		}
	}
	return t, nil
}

package profile

import (
	"slices"

	"github.com/profvis/pkg/model"
)

type runKey struct {
	depth    int
	label    string
	filename string
	linenum  int
}

func keyOf(n *Node) runKey {
	return runKey{depth: n.Depth, label: n.Label, filename: n.Filename, linenum: n.Linenum}
}

// consolidateItem is a pending sibling list whose runs become children of
// parent in the output tree.
type consolidateItem struct {
	parent   int
	siblings []int
}

// Consolidate merges consecutive sibling nodes that share depth, label and
// source location and cover adjacent ticks into one node spanning the whole
// run. The children of every merged node are pooled and consolidated the
// same way. The input tree is left untouched.
func Consolidate(src *Tree) *Tree {
	out := &Tree{Nodes: make([]Node, 0, len(src.Nodes))}
	root := src.Nodes[RootIndex]
	out.addNode(Node{Frame: root.Frame, LastTime: root.LastTime, Parent: NoParent})

	work := []consolidateItem{{parent: RootIndex, siblings: slices.Clone(root.Children)}}
	for len(work) > 0 {
		item := work[len(work)-1]
		work = work[:len(work)-1]

		siblings := item.siblings
		slices.SortStableFunc(siblings, func(a, b int) int {
			return src.Nodes[a].Time - src.Nodes[b].Time
		})

		for start := 0; start < len(siblings); {
			first := &src.Nodes[siblings[start]]
			key := keyOf(first)
			lastTime := first.LastTime
			endTime := first.EndTime
			pooled := slices.Clone(first.Children)

			end := start + 1
			for ; end < len(siblings); end++ {
				next := &src.Nodes[siblings[end]]
				if keyOf(next) != key || next.Time != lastTime+1 {
					break
				}
				lastTime = next.LastTime
				endTime = next.EndTime
				pooled = append(pooled, next.Children...)
			}

			frame := first.Frame
			frame.EndTime = endTime
			idx := out.addNode(Node{
				Frame:    frame,
				LastTime: lastTime,
				Parent:   item.parent,
			})
			if len(pooled) > 0 {
				work = append(work, consolidateItem{parent: idx, siblings: pooled})
			}
			start = end
		}
	}
	return out
}

// Flatten lists every non-root node as a Block, in depth-first pre-order.
func Flatten(t *Tree) []model.Block {
	blocks := make([]model.Block, 0, len(t.Nodes))
	t.Walk(func(idx int, n *Node) bool {
		if idx != RootIndex {
			blocks = append(blocks, blockOf(n))
		}
		return true
	})
	return blocks
}

func blockOf(n *Node) model.Block {
	b := model.Block{
		Depth:     n.Depth,
		Label:     n.Label,
		Filename:  n.Filename,
		Linenum:   n.Linenum,
		Filenum:   n.Filenum,
		StartTime: n.StartTime,
		EndTime:   n.EndTime,
	}
	if n.DepthCollapsed != nil {
		d := *n.DepthCollapsed
		b.DepthCollapsed = &d
	}
	return b
}

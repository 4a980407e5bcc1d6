package profile

import "github.com/profvis/pkg/model"

type collapseItem struct {
	idx int
	// parentDepth is the collapsed depth of the nearest visible ancestor.
	parentDepth int
	// off counts the unclosed off markers on the path above idx.
	off int
}

// CollapseDepths assigns DepthCollapsed on every node: the depth a node is
// drawn at when internal frames are hidden.
//
// Marker frames are hidden together with everything between them. A node is
// hidden when the off markers open above it, plus one if the node itself is
// an off marker, is positive. Below an on marker that count drops by one;
// an on marker with nothing open is ignored. Visible nodes sit one level
// below their nearest visible ancestor. The root always has depth 0.
func CollapseDepths(t *Tree, markers []model.MarkerPair) {
	if len(t.Nodes) == 0 {
		return
	}
	if len(markers) == 0 {
		markers = model.DefaultMarkers()
	}
	offLabels := make(map[string]struct{}, len(markers))
	onLabels := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		offLabels[m.Off] = struct{}{}
		onLabels[m.On] = struct{}{}
	}

	root := t.Root()
	rootDepth := root.Depth
	root.DepthCollapsed = &rootDepth

	work := make([]collapseItem, 0, len(root.Children))
	for i := len(root.Children) - 1; i >= 0; i-- {
		work = append(work, collapseItem{idx: root.Children[i], parentDepth: rootDepth})
	}

	for len(work) > 0 {
		item := work[len(work)-1]
		work = work[:len(work)-1]
		n := &t.Nodes[item.idx]

		off := item.off
		if _, ok := offLabels[n.Label]; ok {
			off++
		}

		childDepth := item.parentDepth
		if off > 0 {
			n.DepthCollapsed = nil
		} else {
			d := item.parentDepth + 1
			n.DepthCollapsed = &d
			childDepth = d
		}

		if _, ok := onLabels[n.Label]; ok && off > 0 {
			off--
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			work = append(work, collapseItem{idx: n.Children[i], parentDepth: childDepth, off: off})
		}
	}
}

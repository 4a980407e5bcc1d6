// Package flamegraph exports the consolidated call tree as a nested
// flame-graph document for hierarchical renderers.
package flamegraph

// Node is one consolidated block in the nested document. Times are in ms.
type Node struct {
	Name     string  `json:"name"`
	File     string  `json:"file,omitempty"`
	Line     int     `json:"line,omitempty"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Value    float64 `json:"value"`
	Children []*Node `json:"children,omitempty"`
}

// NewNode creates a node covering [start, end).
func NewNode(name string, start, end float64) *Node {
	return &Node{
		Name:  name,
		Start: start,
		End:   end,
		Value: end - start,
	}
}

// Self returns the node's value not covered by its children.
func (n *Node) Self() float64 {
	self := n.Value
	for _, c := range n.Children {
		self -= c.Value
	}
	if self < 0 {
		return 0
	}
	return self
}

// FlameGraph represents the complete flame graph structure.
type FlameGraph struct {
	Root      *Node   `json:"root"`
	Interval  float64 `json:"interval"`
	TotalTime float64 `json:"totalTime"`
	MaxDepth  int     `json:"maxDepth"`
	Collapsed bool    `json:"collapsed,omitempty"`
}

// NewFlameGraph creates a flame graph whose root spans [start, end).
func NewFlameGraph(start, end float64) *FlameGraph {
	return &FlameGraph{
		Root:      NewNode("root", start, end),
		TotalTime: end - start,
	}
}

type depthItem struct {
	node  *Node
	depth int
}

// Cleanup drops nodes narrower than minPercent (0-100) of the total time.
func (fg *FlameGraph) Cleanup(minPercent float64) {
	if fg.Root == nil || minPercent <= 0 {
		return
	}
	threshold := fg.TotalTime * minPercent / 100.0

	stack := []*Node{fg.Root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		filtered := node.Children[:0]
		for _, child := range node.Children {
			if child.Value >= threshold {
				filtered = append(filtered, child)
				stack = append(stack, child)
			}
		}
		if len(filtered) == 0 {
			node.Children = nil
		} else {
			node.Children = filtered
		}
	}
}

// CalculateMaxDepth records and returns the deepest level below the root.
func (fg *FlameGraph) CalculateMaxDepth() int {
	fg.MaxDepth = 0
	if fg.Root == nil {
		return 0
	}
	stack := []depthItem{{node: fg.Root}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if item.depth > fg.MaxDepth {
			fg.MaxDepth = item.depth
		}
		for _, child := range item.node.Children {
			stack = append(stack, depthItem{node: child, depth: item.depth + 1})
		}
	}
	return fg.MaxDepth
}

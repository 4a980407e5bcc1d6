package flamegraph

import (
	"context"

	"github.com/profvis/internal/profile"
)

// GeneratorOptions holds configuration options for the flame graph generator.
type GeneratorOptions struct {
	// MinPercent is the minimum percentage for a node to be included.
	MinPercent float64

	// Collapsed drops nodes hidden by collapse markers and re-parents their
	// visible descendants onto the nearest visible ancestor.
	Collapsed bool
}

// DefaultGeneratorOptions returns options that keep every node.
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{}
}

// Generator builds flame graphs from consolidated trees.
type Generator struct {
	opts *GeneratorOptions
}

// NewGenerator creates a new flame graph generator.
func NewGenerator(opts *GeneratorOptions) *Generator {
	if opts == nil {
		opts = DefaultGeneratorOptions()
	}
	return &Generator{opts: opts}
}

type pending struct {
	idx    int
	parent *Node
}

// Generate converts t into a nested document. interval is copied into the
// result for exporters that need tick counts.
func (g *Generator) Generate(ctx context.Context, t *profile.Tree, interval float64) (*FlameGraph, error) {
	root := t.Root()
	fg := NewFlameGraph(root.StartTime, root.EndTime)
	fg.Interval = interval
	fg.Collapsed = g.opts.Collapsed

	stack := make([]pending, 0, len(root.Children))
	for i := len(root.Children) - 1; i >= 0; i-- {
		stack = append(stack, pending{idx: root.Children[i], parent: fg.Root})
	}

	for visited := 0; len(stack) > 0; visited++ {
		if visited%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.Node(item.idx)

		parent := item.parent
		if !g.opts.Collapsed || n.DepthCollapsed != nil {
			node := NewNode(n.Label, n.StartTime, n.EndTime)
			if n.HasSource() {
				node.File = n.Filename
				node.Line = n.Linenum
			}
			parent.Children = append(parent.Children, node)
			parent = node
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, pending{idx: n.Children[i], parent: parent})
		}
	}

	fg.Cleanup(g.opts.MinPercent)
	fg.CalculateMaxDepth()
	return fg, nil
}

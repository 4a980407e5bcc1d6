package flamegraph

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/profvis/pkg/compression"
	"github.com/profvis/pkg/writer"
)

// JSONWriter writes flame graph data as JSON.
type JSONWriter = writer.JSONWriter[*FlameGraph]

// NewJSONWriter creates a compact JSON writer compressed with codec.
func NewJSONWriter(codec compression.Codec) *JSONWriter {
	return writer.NewCompressedJSONWriter[*FlameGraph](codec)
}

// NewPrettyJSONWriter creates an uncompressed JSON writer with indentation.
func NewPrettyJSONWriter() *JSONWriter {
	return writer.NewPrettyJSONWriter[*FlameGraph]()
}

// FoldedWriter writes flame graph data in collapsed/folded format.
// Counts are self times in ticks, so the output re-imports with the
// collapsed parser at the same interval.
type FoldedWriter struct{}

// NewFoldedWriter creates a new folded format writer.
func NewFoldedWriter() *FoldedWriter {
	return &FoldedWriter{}
}

type foldedItem struct {
	node  *Node
	stack string
}

// Write writes "frame1;frame2;frame3 count" lines in pre-order.
func (w *FoldedWriter) Write(fg *FlameGraph, out io.Writer) error {
	interval := fg.Interval
	if interval <= 0 {
		interval = 1
	}

	stack := make([]foldedItem, 0, len(fg.Root.Children))
	for i := len(fg.Root.Children) - 1; i >= 0; i-- {
		stack = append(stack, foldedItem{node: fg.Root.Children[i]})
	}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		current := frameName(item.node)
		if item.stack != "" {
			current = item.stack + ";" + current
		}
		if ticks := int64(math.Round(item.node.Self() / interval)); ticks > 0 {
			if _, err := fmt.Fprintf(out, "%s %d\n", current, ticks); err != nil {
				return err
			}
		}
		for i := len(item.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, foldedItem{node: item.node.Children[i], stack: current})
		}
	}
	return nil
}

// frameName renders a frame the way the collapsed parser reads it back.
func frameName(n *Node) string {
	name := strings.ReplaceAll(n.Name, ";", ":")
	if n.File != "" && n.Line > 0 {
		return fmt.Sprintf("%s (%s:%d)", name, n.File, n.Line)
	}
	return name
}

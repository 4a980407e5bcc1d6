package profile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/profvis/internal/testutil"
	"github.com/profvis/pkg/model"
)

// consolidated runs the tree stages on a built profile at a 10ms interval.
func consolidated(t *testing.T, b *testutil.ProfileBuilder) *Tree {
	t.Helper()
	return Consolidate(rawTree(t, b))
}

func rawTree(t *testing.T, b *testutil.ProfileBuilder) *Tree {
	t.Helper()
	samples, err := SamplesFromColumns(b.Columns())
	require.NoError(t, err)
	frames, err := Normalize(samples, 10)
	require.NoError(t, err)
	tree, err := BuildTree(frames)
	require.NoError(t, err)
	return tree
}

// span is a compact block description used in assertions.
type span struct {
	Depth int
	Label string
	Start float64
	End   float64
}

func spansOf(blocks []model.Block) []span {
	out := make([]span, len(blocks))
	for i, b := range blocks {
		out[i] = span{Depth: b.Depth, Label: b.Label, Start: b.StartTime, End: b.EndTime}
	}
	return out
}

func frame(time, depth int, label string) model.Frame {
	return model.Frame{
		Sample:    model.Sample{Time: time, Depth: depth, Label: label},
		StartTime: float64(time-1) * 10,
		EndTime:   float64(time) * 10,
	}
}

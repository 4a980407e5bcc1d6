package testutil

import (
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/profvis/pkg/model"
)

// AssertNoOverlap checks that blocks of the same depth never overlap.
func AssertNoOverlap(t *testing.T, blocks []model.Block) bool {
	t.Helper()
	byDepth := make(map[int][]model.Block)
	for _, b := range blocks {
		byDepth[b.Depth] = append(byDepth[b.Depth], b)
	}
	ok := true
	for depth, layer := range byDepth {
		sort.Slice(layer, func(i, j int) bool { return layer[i].StartTime < layer[j].StartTime })
		for i := 1; i < len(layer); i++ {
			ok = assert.LessOrEqual(t, layer[i-1].EndTime, layer[i].StartTime,
				"depth %d: %s overlaps %s", depth, describe(layer[i-1]), describe(layer[i])) && ok
		}
	}
	return ok
}

// AssertLayered checks that every block of depth d > 1 lies inside exactly one
// block of depth d-1.
func AssertLayered(t *testing.T, blocks []model.Block) bool {
	t.Helper()
	ok := true
	for _, b := range blocks {
		if b.Depth <= 1 {
			continue
		}
		parents := 0
		for _, p := range blocks {
			if p.Depth == b.Depth-1 && p.StartTime <= b.StartTime && b.EndTime <= p.EndTime {
				parents++
			}
		}
		ok = assert.Equal(t, 1, parents, "%s is not contained in exactly one parent", describe(b)) && ok
	}
	return ok
}

// AssertNoNaN checks that no line-time value is NaN or infinite.
func AssertNoNaN(t *testing.T, files []model.FileLineTimes) bool {
	t.Helper()
	ok := true
	for _, f := range files {
		for _, line := range f.Lines {
			finite := !math.IsNaN(line.SumTime) && !math.IsInf(line.SumTime, 0) &&
				!math.IsNaN(line.PropTime) && !math.IsInf(line.PropTime, 0)
			ok = assert.True(t, finite, "%s:%d has a non-finite time", line.Filename, line.Linenum) && ok
		}
	}
	return ok
}

func describe(b model.Block) string {
	return fmt.Sprintf("%s@%d[%g,%g]", b.Label, b.Depth, b.StartTime, b.EndTime)
}

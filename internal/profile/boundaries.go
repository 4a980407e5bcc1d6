package profile

import (
	"maps"
	"slices"
	"sort"

	"github.com/profvis/pkg/model"
)

// SplitAtBoundaries restores the layering invariant on a flat block list: no
// block may straddle a boundary between two blocks of a shallower layer.
//
// Layers are processed from the shallowest depth down while collecting every
// start and end time seen so far. A block with a collected breakpoint strictly
// inside its range is cut into pieces at those points; pieces keep every
// field but their times. Output order follows input order, with pieces in
// place of the block they came from.
func SplitAtBoundaries(blocks []model.Block) []model.Block {
	if len(blocks) == 0 {
		return []model.Block{}
	}

	byDepth := make(map[int][]int)
	for i := range blocks {
		byDepth[blocks[i].Depth] = append(byDepth[blocks[i].Depth], i)
	}

	pieces := make([][]model.Block, len(blocks))
	seen := make(map[float64]struct{})
	var breakpoints []float64

	for _, depth := range slices.Sorted(maps.Keys(byDepth)) {
		layer := byDepth[depth]
		for _, i := range layer {
			pieces[i] = splitBlock(blocks[i], breakpoints)
		}
		for _, i := range layer {
			for _, p := range []float64{blocks[i].StartTime, blocks[i].EndTime} {
				if _, ok := seen[p]; !ok {
					seen[p] = struct{}{}
					breakpoints = append(breakpoints, p)
				}
			}
		}
		sort.Float64s(breakpoints)
	}

	out := make([]model.Block, 0, len(blocks))
	for _, p := range pieces {
		out = append(out, p...)
	}
	return out
}

// splitBlock cuts b at every sorted breakpoint in (StartTime, EndTime).
func splitBlock(b model.Block, breakpoints []float64) []model.Block {
	i := sort.SearchFloat64s(breakpoints, b.StartTime)
	for i < len(breakpoints) && breakpoints[i] <= b.StartTime {
		i++
	}
	if i == len(breakpoints) || breakpoints[i] >= b.EndTime {
		return []model.Block{b}
	}

	var out []model.Block
	start := b.StartTime
	for ; i < len(breakpoints) && breakpoints[i] < b.EndTime; i++ {
		piece := b
		piece.StartTime = start
		piece.EndTime = breakpoints[i]
		out = append(out, piece)
		start = breakpoints[i]
	}
	last := b
	last.StartTime = start
	out = append(out, last)
	return out
}

package statistics

import (
	"sort"

	"github.com/profvis/pkg/model"
)

// HotLines returns the topN lines with the most attributed time across all
// files, largest first. Lines without time are never included. topN <= 0
// returns every such line.
func HotLines(files []model.FileLineTimes, topN int) []model.LineTime {
	lines := make([]model.LineTime, 0)
	for _, f := range files {
		lines = append(lines, f.NonZero()...)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.SumTime != b.SumTime {
			return a.SumTime > b.SumTime
		}
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Linenum < b.Linenum
	})

	if topN > 0 && len(lines) > topN {
		lines = lines[:topN]
	}
	return lines
}

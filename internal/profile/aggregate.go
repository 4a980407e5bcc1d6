package profile

import (
	"strings"

	"github.com/profvis/pkg/model"
)

type lineKey struct {
	filename string
	linenum  int
}

// LineTimes attributes each node's duration to its source line unless an
// ancestor already maps to the same line, so recursive time is counted once.
// It returns one entry per physical line of every tracked file. PropTime is
// relative to the busiest line across all files, and 0 everywhere when no
// line received any time.
func LineTimes(t *Tree, files []model.SourceFile) []model.FileLineTimes {
	sums := make(map[lineKey]float64)
	for i := 1; i < len(t.Nodes); i++ {
		n := &t.Nodes[i]
		if !n.HasSource() {
			continue
		}
		key := lineKey{filename: n.Filename, linenum: n.Linenum}
		if t.HasAncestor(i, func(a *Node) bool {
			return a.Filename == key.filename && a.Linenum == key.linenum
		}) {
			continue
		}
		sums[key] += n.Duration()
	}

	result := make([]model.FileLineTimes, len(files))
	maxTime := 0.0
	for fi, file := range files {
		lines := splitLines(file.Content)
		entries := make([]model.LineTime, len(lines))
		for i, content := range lines {
			sum := sums[lineKey{filename: file.Filename, linenum: i + 1}]
			entries[i] = model.LineTime{
				Filename: file.Filename,
				Linenum:  i + 1,
				Content:  content,
				SumTime:  sum,
			}
			if sum > maxTime {
				maxTime = sum
			}
		}
		result[fi] = model.FileLineTimes{Filename: file.Filename, Lines: entries}
	}

	for fi := range result {
		for i := range result[fi].Lines {
			result[fi].Lines[i].PropTime = proportion(result[fi].Lines[i].SumTime, maxTime)
		}
	}
	return result
}

// LabelTimes totals node durations per label, skipping nodes that have an
// ancestor with the same label.
func LabelTimes(t *Tree) model.LabelTimes {
	times := make(model.LabelTimes)
	for i := 1; i < len(t.Nodes); i++ {
		n := &t.Nodes[i]
		label := n.Label
		if t.HasAncestor(i, func(a *Node) bool { return a.Label == label }) {
			continue
		}
		times[label] += n.Duration()
	}
	return times
}

// proportion divides safely; an empty denominator yields 0.
func proportion(value, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return value / total
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

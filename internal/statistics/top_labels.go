// Package statistics summarizes a rendered profile: heaviest labels and
// hottest source lines.
package statistics

import (
	"sort"

	"github.com/profvis/internal/profile"
	"github.com/profvis/pkg/model"
)

// DefaultTopN is the default number of entries to return.
const DefaultTopN = 15

// TopLabelsCalculator ranks labels by attributed time.
type TopLabelsCalculator struct {
	topN int
}

// TopLabelsOption configures the TopLabelsCalculator.
type TopLabelsOption func(*TopLabelsCalculator)

// WithTopN sets the number of labels to return. 0 returns all of them.
func WithTopN(n int) TopLabelsOption {
	return func(c *TopLabelsCalculator) {
		c.topN = n
	}
}

// NewTopLabelsCalculator creates a new TopLabelsCalculator.
func NewTopLabelsCalculator(opts ...TopLabelsOption) *TopLabelsCalculator {
	c := &TopLabelsCalculator{topN: DefaultTopN}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LabelEntry is one ranked label. Total time counts recursive calls once;
// self time excludes time spent in callees.
type LabelEntry struct {
	Label        string  `json:"label"`
	TotalTime    float64 `json:"totalTime"`
	TotalPercent float64 `json:"totalPercent"`
	SelfTime     float64 `json:"selfTime"`
	SelfPercent  float64 `json:"selfPercent"`
}

// TopLabelsResult holds ranked labels.
type TopLabelsResult struct {
	Labels    []LabelEntry `json:"labels"`
	TotalTime float64      `json:"totalTime"`
}

// Calculate ranks the labels of t by total attributed time, largest first.
// Ties are broken by label name.
func (c *TopLabelsCalculator) Calculate(t *profile.Tree) *TopLabelsResult {
	total := t.Root().Duration()
	result := &TopLabelsResult{Labels: make([]LabelEntry, 0), TotalTime: total}
	if t.Empty() {
		return result
	}

	self := make(map[string]float64)
	for i := 1; i < t.Len(); i++ {
		n := t.Node(i)
		s := n.Duration()
		for _, c := range n.Children {
			s -= t.Node(c).Duration()
		}
		if s > 0 {
			self[n.Label] += s
		}
	}

	for label, time := range profile.LabelTimes(t) {
		result.Labels = append(result.Labels, LabelEntry{
			Label:        label,
			TotalTime:    time,
			TotalPercent: percent(time, total),
			SelfTime:     self[label],
			SelfPercent:  percent(self[label], total),
		})
	}

	sort.Slice(result.Labels, func(i, j int) bool {
		a, b := result.Labels[i], result.Labels[j]
		if a.TotalTime != b.TotalTime {
			return a.TotalTime > b.TotalTime
		}
		return a.Label < b.Label
	})

	if c.topN > 0 && len(result.Labels) > c.topN {
		result.Labels = result.Labels[:c.topN]
	}
	return result
}

// LabelTimesMap returns the ranked entries as a label to total time map.
func (r *TopLabelsResult) LabelTimesMap() model.LabelTimes {
	m := make(model.LabelTimes, len(r.Labels))
	for _, e := range r.Labels {
		m[e.Label] = e.TotalTime
	}
	return m
}

func percent(value, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return value / total * 100
}

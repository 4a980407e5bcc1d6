package statistics

import (
	"github.com/profvis/internal/profile"
	"github.com/profvis/pkg/model"
)

// Summary is the headline view of one rendered profile.
type Summary struct {
	Source      string            `json:"source,omitempty"`
	Interval    float64           `json:"interval"`
	TotalTime   float64           `json:"totalTime"`
	SampleCount int               `json:"sampleCount"`
	BlockCount  int               `json:"blockCount"`
	MaxDepth    int               `json:"maxDepth"`
	TopLabels   []LabelEntry      `json:"topLabels"`
	HotLines    []model.LineTime  `json:"hotLines"`
	Stats       *profile.RunStats `json:"stats,omitempty"`
}

// Summarize builds a Summary from a pipeline output.
func Summarize(out *profile.Output, topN int) *Summary {
	r := out.Result
	return &Summary{
		Interval:    r.Interval,
		TotalTime:   r.TotalTime,
		SampleCount: r.SampleCount,
		BlockCount:  len(r.Blocks),
		MaxDepth:    r.MaxDepth,
		TopLabels:   NewTopLabelsCalculator(WithTopN(topN)).Calculate(out.Tree).Labels,
		HotLines:    HotLines(r.Files, topN),
		Stats:       out.Stats,
	}
}

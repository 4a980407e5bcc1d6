package formatter

import (
	"github.com/profvis/internal/statistics"
	"github.com/profvis/pkg/utils"
)

// SummaryFormatter logs a profile summary.
type SummaryFormatter struct {
	// MaxLabelWidth truncates long labels.
	MaxLabelWidth int
}

// NewSummaryFormatter creates a summary formatter.
func NewSummaryFormatter() *SummaryFormatter {
	return &SummaryFormatter{MaxLabelWidth: 80}
}

// Format outputs the summary to the logger.
func (f *SummaryFormatter) Format(s *statistics.Summary, log utils.Logger) {
	log.Info("=== Render Summary ===")
	if s.Source != "" {
		log.Info("Source:        %s", s.Source)
	}
	log.Info("Samples:       %d", s.SampleCount)
	log.Info("Total time:    %.2f ms (interval %.2f ms)", s.TotalTime, s.Interval)
	log.Info("Blocks:        %d (max depth %d)", s.BlockCount, s.MaxDepth)

	if len(s.TopLabels) > 0 {
		log.Info("=== Top Labels ===")
		for i, e := range s.TopLabels {
			log.Info("  %2d. %6.2f%%  %10.2f ms  %s", i+1, e.TotalPercent, e.TotalTime, truncateString(e.Label, f.MaxLabelWidth))
		}
	}

	if len(s.HotLines) > 0 {
		log.Info("=== Hot Lines ===")
		for i, l := range s.HotLines {
			log.Info("  %2d. %10.2f ms  %s:%d", i+1, l.SumTime, l.Filename, l.Linenum)
		}
	}
}

// truncateString shortens s to maxLen runes, marking the cut with "...".
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 3 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

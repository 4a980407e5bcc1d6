package formatter

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/profvis/pkg/model"
)

// TextFormatter renders code tables as aligned plain text.
type TextFormatter struct {
	// BarWidth is the width of a full-time bar in characters.
	BarWidth int
}

// NewTextFormatter creates a text formatter with 20-character bars.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{BarWidth: 20}
}

// Name returns "text".
func (f *TextFormatter) Name() string {
	return "text"
}

// Format writes one section per file.
func (f *TextFormatter) Format(w io.Writer, files []model.FileLineTimes, opts Options) error {
	for i, file := range files {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "== %s ==\n", file.Filename); err != nil {
			return err
		}
		for _, line := range visibleLines(file, opts) {
			if _, err := fmt.Fprintf(w, "%5d | %10s | %-*s | %s\n",
				line.Linenum, formatTime(line.SumTime), f.BarWidth, f.bar(line.PropTime), line.Content); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *TextFormatter) bar(prop float64) string {
	n := int(math.Round(prop * float64(f.BarWidth)))
	if n < 0 {
		n = 0
	}
	if n > f.BarWidth {
		n = f.BarWidth
	}
	return strings.Repeat("#", n)
}

// formatTime rounds to two decimals; zero renders empty.
func formatTime(ms float64) string {
	if ms == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f ms", ms)
}

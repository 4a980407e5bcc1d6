// Package formatter renders line-time tables and profile summaries for
// people: plain text, HTML code tables and log output.
package formatter

import (
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/profvis/pkg/model"
)

// Options controls code table rendering.
type Options struct {
	// HideZeroLines drops lines that received no time.
	HideZeroLines bool

	// Highlight maps a CSS class to patterns; a line whose content matches
	// any pattern gets the class.
	Highlight map[string]model.Patterns
}

// CodeTableFormatter renders per-line timings of source files.
type CodeTableFormatter interface {
	Format(w io.Writer, files []model.FileLineTimes, opts Options) error
	Name() string
}

// Registry manages formatter instances.
type Registry struct {
	formatters map[string]CodeTableFormatter
	fallback   CodeTableFormatter
}

// NewRegistry creates a registry with the text and HTML formatters.
func NewRegistry() *Registry {
	r := &Registry{
		formatters: make(map[string]CodeTableFormatter),
		fallback:   NewTextFormatter(),
	}
	r.Register(r.fallback)
	r.Register(NewHTMLFormatter())
	return r
}

// Register registers a formatter under its name.
func (r *Registry) Register(f CodeTableFormatter) {
	r.formatters[f.Name()] = f
}

// Get returns the formatter called name, or the text formatter.
func (r *Registry) Get(name string) CodeTableFormatter {
	if f, ok := r.formatters[strings.ToLower(name)]; ok {
		return f
	}
	return r.fallback
}

// visibleLines applies HideZeroLines.
func visibleLines(f model.FileLineTimes, opts Options) []model.LineTime {
	if opts.HideZeroLines {
		return f.NonZero()
	}
	return f.Lines
}

type highlighter struct {
	classes []string
	regexps [][]*regexp.Regexp
}

// newHighlighter compiles highlight patterns. Invalid patterns are skipped.
func newHighlighter(highlight map[string]model.Patterns) *highlighter {
	h := &highlighter{}
	classes := make([]string, 0, len(highlight))
	for class := range highlight {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		var res []*regexp.Regexp
		for _, p := range highlight[class] {
			if re, err := regexp.Compile(p); err == nil {
				res = append(res, re)
			}
		}
		if len(res) > 0 {
			h.classes = append(h.classes, class)
			h.regexps = append(h.regexps, res)
		}
	}
	return h
}

// classesFor returns the classes whose patterns match content.
func (h *highlighter) classesFor(content string) []string {
	var out []string
	for i, res := range h.regexps {
		for _, re := range res {
			if re.MatchString(content) {
				out = append(out, h.classes[i])
				break
			}
		}
	}
	return out
}

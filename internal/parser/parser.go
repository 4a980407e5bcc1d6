// Package parser defines the importers that turn profiling data into
// render messages.
package parser

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/profvis/pkg/model"
)

// Parser turns one input stream into a render message.
type Parser interface {
	// Parse parses profiling data from the reader.
	Parse(ctx context.Context, reader io.Reader) (*model.Message, error)

	// SupportedFormats returns the formats supported by this parser.
	SupportedFormats() []string

	// Name returns the name of this parser.
	Name() string
}

// Registry holds registered parsers by format name.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry creates a new parser Registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[string]Parser),
	}
}

// Register registers p under every format it supports.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, format := range p.SupportedFormats() {
		r.parsers[format] = p
	}
}

// Get returns the parser for format.
func (r *Registry) Get(format string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[format]
	if !ok {
		return nil, UnsupportedFormat(format)
	}
	return p, nil
}

// Formats lists the registered format names in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// Format names understood by DetectFormat.
const (
	FormatMessage   = "message"
	FormatCollapsed = "collapsed"
	FormatPprof     = "pprof"
)

// DetectFormat guesses an input format from a file name. Compression
// suffixes are ignored. It returns "" when nothing matches.
func DetectFormat(filename string) string {
	name := strings.ToLower(filepath.Base(filename))
	for _, suffix := range []string{".gz", ".zst"} {
		name = strings.TrimSuffix(name, suffix)
	}
	switch {
	case strings.HasSuffix(name, ".json"):
		return FormatMessage
	case strings.HasSuffix(name, ".folded"), strings.HasSuffix(name, ".collapsed"),
		strings.HasSuffix(name, ".txt"):
		return FormatCollapsed
	case strings.HasSuffix(name, ".pb"), strings.HasSuffix(name, ".pprof"),
		strings.HasSuffix(name, ".prof"), strings.HasPrefix(name, "pprof."):
		return FormatPprof
	default:
		return ""
	}
}

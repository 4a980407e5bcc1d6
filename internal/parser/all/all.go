// Package all registers every supported input format.
package all

import (
	"context"
	"io"

	"github.com/profvis/internal/parser"
	"github.com/profvis/internal/parser/collapsed"
	"github.com/profvis/internal/parser/message"
	"github.com/profvis/internal/parser/pprof"
	"github.com/profvis/pkg/model"
)

// NewRegistry returns a registry with the message, collapsed and pprof
// parsers.
func NewRegistry() *parser.Registry {
	return NewRegistryWithLimits(parser.Limits{})
}

// NewRegistryWithLimits is NewRegistry with every parser bounded by limits.
// Zero fields keep the parser package defaults.
func NewRegistryWithLimits(limits parser.Limits) *parser.Registry {
	limits = limits.WithDefaults()

	r := parser.NewRegistry()
	r.Register(&message.Parser{MaxBytes: limits.MaxBytes})

	opts := collapsed.DefaultParserOptions()
	opts.MaxTicks = limits.MaxTicks
	opts.MaxRows = limits.MaxRows
	opts.MaxBytes = limits.MaxBytes
	r.Register(collapsed.NewParser(opts))

	r.Register(pprof.NewParser(pprof.Options{
		MaxTicks: limits.MaxTicks,
		MaxRows:  limits.MaxRows,
		MaxBytes: limits.MaxBytes,
	}))
	return r
}

// Parse decodes reader with the parser for format. An empty format is
// detected from filename, falling back to a render message.
func Parse(ctx context.Context, registry *parser.Registry, format, filename string, reader io.Reader) (*model.Message, error) {
	if format == "" {
		format = parser.DetectFormat(filename)
	}
	if format == "" {
		format = parser.FormatMessage
	}
	p, err := registry.Get(format)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, reader)
}

package collapsed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/profvis/internal/parser"
	"github.com/profvis/pkg/compression"
	"github.com/profvis/pkg/model"
)

// DefaultInterval is the tick length assigned to each folded sample, in ms.
const DefaultInterval = 10.0

// ParserOptions holds configuration options for the collapsed parser.
type ParserOptions struct {
	// Interval is written into the produced message.
	Interval float64

	// MaxTicks, MaxRows and MaxBytes bound the expanded profile and the
	// decompressed input. Zero means the parser package defaults.
	MaxTicks int
	MaxRows  int
	MaxBytes int64

	// IncludeSwapper keeps stacks of the swapper (idle) thread.
	IncludeSwapper bool

	// SortStacks orders lines by stack before expanding them, so stacks that
	// share a prefix become adjacent and merge into wide blocks.
	SortStacks bool

	// StrictMode enables strict parsing that fails on any error.
	StrictMode bool
}

// DefaultParserOptions returns default parser options.
func DefaultParserOptions() *ParserOptions {
	return &ParserOptions{
		Interval:   DefaultInterval,
		MaxTicks:   parser.DefaultMaxTicks,
		MaxRows:    parser.DefaultMaxRows,
		MaxBytes:   parser.DefaultMaxBytes,
		SortStacks: true,
	}
}

// Parser implements the collapsed format parser.
type Parser struct {
	opts *ParserOptions
}

// NewParser creates a new collapsed format parser.
func NewParser(opts *ParserOptions) *Parser {
	if opts == nil {
		opts = DefaultParserOptions()
	}
	return &Parser{opts: opts}
}

// RegisterWithRegistry registers a parser with default options.
func RegisterWithRegistry(registry *parser.Registry) {
	registry.Register(NewParser(nil))
}

type foldedLine struct {
	stack string
	count int64
}

// Parse reads folded stacks. Every line "a;b;c N" becomes N consecutive
// ticks of the stack a, b, c.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) (*model.Message, error) {
	rc, err := compression.NewAutoReader(reader)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var lines []foldedLine
	scanner := bufio.NewScanner(parser.LimitReader(rc, p.opts.MaxBytes))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parsed, err := parseLine(line)
		if err != nil {
			if p.opts.StrictMode {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			continue
		}
		first, _, _ := strings.Cut(parsed.stack, ";")
		if IsInvalidData(first) || (!p.opts.IncludeSwapper && IsSwapperThread(first)) {
			continue
		}
		lines = append(lines, parsed)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if p.opts.SortStacks {
		sort.SliceStable(lines, func(i, j int) bool { return lines[i].stack < lines[j].stack })
	}

	b := parser.NewColumnsBuilder(parser.Limits{MaxTicks: p.opts.MaxTicks, MaxRows: p.opts.MaxRows})
	for _, l := range lines {
		if err := b.AddStack(ParseCallStack(l.stack), l.count); err != nil {
			return nil, err
		}
	}
	return b.Message(p.opts.Interval), nil
}

// SupportedFormats returns the formats supported by this parser.
func (p *Parser) SupportedFormats() []string {
	return []string{parser.FormatCollapsed, "folded"}
}

// Name returns the name of this parser.
func (p *Parser) Name() string {
	return "collapsed"
}

// parseLine splits "stack count" at the last space.
func parseLine(line string) (foldedLine, error) {
	lastSpace := strings.LastIndex(line, " ")
	if lastSpace == -1 {
		return foldedLine{}, parser.InvalidFormat("missing sample count in %q", line)
	}

	count, err := strconv.ParseInt(strings.TrimSpace(line[lastSpace+1:]), 10, 64)
	if err != nil {
		return foldedLine{}, parser.InvalidFormat("invalid count value: %v", err)
	}
	if count < 0 {
		return foldedLine{}, parser.InvalidFormat("negative count %d", count)
	}
	return foldedLine{stack: strings.TrimSpace(line[:lastSpace]), count: count}, nil
}

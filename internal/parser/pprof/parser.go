// Package pprof imports Go pprof profiles. Each sample's value becomes a
// count of consecutive ticks of its stack.
package pprof

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/pprof/profile"

	"github.com/profvis/internal/parser"
	"github.com/profvis/pkg/compression"
	"github.com/profvis/pkg/model"
)

// FallbackInterval is used when neither the options nor the profile's
// sampling period give a tick length.
const FallbackInterval = 10.0

// SampleType alternatives tried when a requested type is absent.
var sampleTypeAlternatives = map[string][]string{
	"cpu":       {"cpu", "nanoseconds", "samples"},
	"samples":   {"samples", "count"},
	"goroutine": {"goroutine", "count"},
}

// Options controls the import.
type Options struct {
	// Interval overrides the tick length in ms. 0 derives it from the
	// profile's period when that is a time unit.
	Interval float64

	// SampleType selects the value column. Empty means the first one.
	SampleType string

	// MaxTicks, MaxRows and MaxBytes bound the expanded profile and the
	// decompressed input. Zero means the parser package defaults.
	MaxTicks int
	MaxRows  int
	MaxBytes int64
}

// Parser converts pprof profiles to messages.
type Parser struct {
	opts Options
}

// NewParser creates a pprof parser.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// SupportedFormats returns the formats supported by this parser.
func (p *Parser) SupportedFormats() []string {
	return []string{parser.FormatPprof}
}

// Name returns the name of this parser.
func (p *Parser) Name() string {
	return "pprof"
}

// Parse reads a (possibly compressed) pprof protobuf.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) (*model.Message, error) {
	rc, err := compression.NewAutoReader(reader)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	prof, err := profile.Parse(parser.LimitReader(rc, p.opts.MaxBytes))
	if err != nil {
		if errors.Is(err, parser.ErrInputTooLarge) {
			return nil, err
		}
		return nil, parser.InvalidFormat("failed to parse pprof: %v", err)
	}
	return p.Convert(ctx, prof)
}

type weightedStack struct {
	key    string
	frames []parser.Frame
	value  int64
}

// Convert turns an already decoded profile into a message. Identical stacks
// are merged and stacks are emitted in lexical order so shared prefixes
// render as wide blocks.
func (p *Parser) Convert(ctx context.Context, prof *profile.Profile) (*model.Message, error) {
	idx, err := p.sampleIndex(prof)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*weightedStack)
	for _, sample := range prof.Sample {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if idx >= len(sample.Value) || sample.Value[idx] <= 0 {
			continue
		}
		frames := StackFrames(sample.Location)
		if len(frames) == 0 {
			continue
		}
		key := stackKey(frames)
		if ws, ok := byKey[key]; ok {
			ws.value += sample.Value[idx]
			continue
		}
		byKey[key] = &weightedStack{key: key, frames: frames, value: sample.Value[idx]}
	}

	stacks := make([]*weightedStack, 0, len(byKey))
	for _, ws := range byKey {
		stacks = append(stacks, ws)
	}
	sort.Slice(stacks, func(i, j int) bool { return stacks[i].key < stacks[j].key })

	b := parser.NewColumnsBuilder(parser.Limits{MaxTicks: p.opts.MaxTicks, MaxRows: p.opts.MaxRows})
	for _, ws := range stacks {
		if err := b.AddStack(ws.frames, ws.value); err != nil {
			return nil, err
		}
	}
	return b.Message(p.interval(prof)), nil
}

// StackFrames lists a sample's frames outermost first. pprof stores the leaf
// location first and, within a location, the innermost inlined line first.
func StackFrames(locations []*profile.Location) []parser.Frame {
	frames := make([]parser.Frame, 0, len(locations))
	for i := len(locations) - 1; i >= 0; i-- {
		loc := locations[i]
		if len(loc.Line) == 0 {
			frames = append(frames, parser.Frame{Label: fmt.Sprintf("0x%x", loc.Address)})
			continue
		}
		for j := len(loc.Line) - 1; j >= 0; j-- {
			line := loc.Line[j]
			frame := parser.Frame{Label: fmt.Sprintf("0x%x", loc.Address)}
			if line.Function != nil {
				if line.Function.Name != "" {
					frame.Label = line.Function.Name
				}
				if line.Function.Filename != "" && line.Line > 0 {
					frame.Filename = line.Function.Filename
					frame.Linenum = int(line.Line)
				}
			}
			frames = append(frames, frame)
		}
	}
	return frames
}

func stackKey(frames []parser.Frame) string {
	var sb strings.Builder
	for i, f := range frames {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, "%s\x00%s\x00%d", f.Label, f.Filename, f.Linenum)
	}
	return sb.String()
}

func (p *Parser) sampleIndex(prof *profile.Profile) (int, error) {
	if len(prof.SampleType) == 0 {
		return 0, parser.InvalidFormat("profile has no sample types")
	}
	if p.opts.SampleType == "" {
		return 0, nil
	}
	candidates := []string{p.opts.SampleType}
	candidates = append(candidates, sampleTypeAlternatives[p.opts.SampleType]...)
	for _, name := range candidates {
		for i, st := range prof.SampleType {
			if st.Type == name {
				return i, nil
			}
		}
	}
	return 0, parser.InvalidFormat("sample type %q not found in profile", p.opts.SampleType)
}

// interval converts the profile's sampling period to milliseconds.
func (p *Parser) interval(prof *profile.Profile) float64 {
	if p.opts.Interval > 0 {
		return p.opts.Interval
	}
	if prof.PeriodType == nil || prof.Period <= 0 {
		return FallbackInterval
	}
	period := float64(prof.Period)
	switch prof.PeriodType.Unit {
	case "nanoseconds":
		return period / 1e6
	case "microseconds":
		return period / 1e3
	case "milliseconds":
		return period
	case "seconds":
		return period * 1e3
	default:
		return FallbackInterval
	}
}

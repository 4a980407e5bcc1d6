package profile

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/profvis/pkg/errors"
	"github.com/profvis/pkg/model"
	"github.com/profvis/pkg/telemetry"
	"github.com/profvis/pkg/utils"
)

// Stage names reported in RunStats and span names.
const (
	StageRows        = "rows"
	StageNormalize   = "normalize"
	StageTree        = "tree"
	StageConsolidate = "consolidate"
	StageCollapse    = "collapse"
	StageBlocks      = "blocks"
	StageLines       = "lines"
	StageLabels      = "labels"
)

// DefaultInterval is the tick length used when a message carries none.
const DefaultInterval = 10.0

// Options configures a Pipeline.
type Options struct {
	// DefaultInterval applies to messages whose interval is 0.
	DefaultInterval float64

	// Markers are added to the built-in marker pair and to the pairs a
	// message brings in collapseItems.
	Markers []model.MarkerPair
}

// DefaultOptions returns options with a 10ms interval and no extra markers.
func DefaultOptions() Options {
	return Options{DefaultInterval: DefaultInterval}
}

// Observer is notified after every run, successful or not.
type Observer interface {
	ObserveRun(stats *RunStats, err error)
}

// RunStats summarizes one run.
type RunStats struct {
	Samples  int           `json:"samples"`
	Nodes    int           `json:"nodes"`
	Blocks   int           `json:"blocks"`
	MaxDepth int           `json:"maxDepth"`
	Stages   []utils.Stage `json:"stages"`
}

// Output is a result together with the tree it was derived from.
type Output struct {
	Result *model.Result
	Tree   *Tree
	Stats  *RunStats
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver registers an observer for finished runs.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// WithClock sets the clock used for stage timings.
func WithClock(clock utils.Clock) Option {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// Pipeline chains the stages that turn a message into renderable data.
// It holds no per-run state and may be shared between goroutines.
type Pipeline struct {
	opts      Options
	logger    utils.Logger
	clock     utils.Clock
	observers []Observer
}

// NewPipeline creates a pipeline.
func NewPipeline(opts Options, options ...Option) *Pipeline {
	if !(opts.DefaultInterval > 0) {
		opts.DefaultInterval = DefaultInterval
	}
	p := &Pipeline{
		opts:   opts,
		logger: &utils.NullLogger{},
		clock:  utils.NewRealClock(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Run turns msg into a Result. ctx only carries tracing; every stage runs to
// completion.
func (p *Pipeline) Run(ctx context.Context, msg *model.Message) (*model.Result, error) {
	out, err := p.Render(ctx, msg)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Render is Run that also returns the consolidated tree and stage timings.
func (p *Pipeline) Render(ctx context.Context, msg *model.Message) (*Output, error) {
	ctx, span := telemetry.Start(ctx, "profile.render")
	defer span.End()

	stats := &RunStats{}
	out, err := p.render(ctx, msg, stats)
	telemetry.RecordError(span, err)
	span.SetAttributes(
		attribute.Int("profile.samples", stats.Samples),
		attribute.Int("profile.blocks", stats.Blocks),
	)
	for _, o := range p.observers {
		o.ObserveRun(stats, err)
	}
	if err != nil {
		p.logger.Warn("render failed after %d samples: %v", stats.Samples, err)
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) render(ctx context.Context, msg *model.Message, stats *RunStats) (*Output, error) {
	if msg == nil {
		return nil, apperrors.MalformedInput("message is nil")
	}
	interval := msg.Interval
	if interval == 0 {
		interval = p.opts.DefaultInterval
	}

	timer := utils.NewStageTimer(p.clock)
	defer func() { stats.Stages = timer.Stages() }()

	stage := func(name string, fn func() error) error {
		_, span := telemetry.Start(ctx, "profile."+name)
		defer span.End()
		err := timer.Time(name, fn)
		telemetry.RecordError(span, err)
		return err
	}
	step := func(name string, fn func()) {
		_, span := telemetry.Start(ctx, "profile."+name)
		defer span.End()
		timer.Run(name, fn)
	}

	var (
		samples   []model.Sample
		frames    []model.Frame
		raw       *Tree
		tree      *Tree
		blocks    []model.Block
		lineTimes []model.FileLineTimes
		labels    model.LabelTimes
	)

	if err := stage(StageRows, func() (err error) {
		samples, err = SamplesFromColumns(msg.Prof)
		return err
	}); err != nil {
		return nil, err
	}
	stats.Samples = len(samples)

	if err := stage(StageNormalize, func() (err error) {
		frames, err = Normalize(samples, interval)
		return err
	}); err != nil {
		return nil, err
	}

	if err := stage(StageTree, func() (err error) {
		raw, err = BuildTree(frames)
		return err
	}); err != nil {
		return nil, err
	}

	step(StageConsolidate, func() {
		tree = Consolidate(raw)
	})
	stats.Nodes = tree.Len() - 1
	stats.MaxDepth = tree.MaxDepth()

	step(StageCollapse, func() {
		CollapseDepths(tree, p.markers(msg))
	})

	step(StageBlocks, func() {
		blocks = SplitAtBoundaries(Flatten(tree))
	})
	stats.Blocks = len(blocks)

	step(StageLines, func() {
		lineTimes = LineTimes(tree, msg.Files)
	})

	step(StageLabels, func() {
		labels = LabelTimes(tree)
	})

	timer.Log(p.logger, "render stages:")

	return &Output{
		Result: &model.Result{
			Interval:    interval,
			TotalTime:   tree.Root().Duration(),
			SampleCount: len(samples),
			MaxDepth:    stats.MaxDepth,
			Collapse:    msg.Collapse,
			Blocks:      blocks,
			Files:       lineTimes,
			LabelTimes:  labels,
			Highlight:   msg.Highlight,
		},
		Tree:  tree,
		Stats: stats,
	}, nil
}

// markers combines the default pair, configured pairs and the message's own.
func (p *Pipeline) markers(msg *model.Message) []model.MarkerPair {
	markers := model.DefaultMarkers()
	markers = append(markers, p.opts.Markers...)
	return append(markers, msg.CollapseItems...)
}

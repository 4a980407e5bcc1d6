package profile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profvis/internal/testutil"
	apperrors "github.com/profvis/pkg/errors"
	"github.com/profvis/pkg/model"
	"github.com/profvis/pkg/utils"
)

type recordingObserver struct {
	stats []*RunStats
	errs  []error
}

func (o *recordingObserver) ObserveRun(stats *RunStats, err error) {
	o.stats = append(o.stats, stats)
	o.errs = append(o.errs, err)
}

func sampleMessage() *model.Message {
	msg := testutil.NewProfile().
		Repeat(2, testutil.FL("main", "main.R", 1), testutil.FL("load", "main.R", 2)).
		Stack(testutil.FL("main", "main.R", 1), testutil.F(model.StackTraceOff), testutil.F("internal"),
			testutil.F(model.StackTraceOn), testutil.FL("fit", "main.R", 3)).
		File("main.R", "main <- function() {\n  load()\n  fit()\n}").
		Message(10)
	msg.Collapse = true
	msg.Highlight = map[string]model.Patterns{"kw": {"function"}}
	return msg
}

func TestPipeline_Run(t *testing.T) {
	p := NewPipeline(DefaultOptions())

	result, err := p.Run(context.Background(), sampleMessage())
	require.NoError(t, err)

	assert.Equal(t, 10.0, result.Interval)
	assert.Equal(t, 30.0, result.TotalTime)
	assert.Equal(t, 2*2+5, result.SampleCount)
	assert.Equal(t, 5, result.MaxDepth)
	assert.True(t, result.Collapse)
	assert.Equal(t, model.Patterns{"function"}, result.Highlight["kw"])

	testutil.AssertNoOverlap(t, result.Blocks)
	testutil.AssertLayered(t, result.Blocks)
	assert.Equal(t, span{Depth: 1, Label: "main", Start: 0, End: 30}, spansOf(result.Blocks)[0])

	var fit model.Block
	for _, b := range result.Blocks {
		if b.Label == "fit" {
			fit = b
		}
	}
	require.NotNil(t, fit.DepthCollapsed)
	assert.Equal(t, 5, fit.Depth)
	assert.Equal(t, 2, *fit.DepthCollapsed)

	require.Len(t, result.Files, 1)
	lines := result.Files[0].Lines
	assert.Equal(t, 30.0, lines[0].SumTime)
	assert.Equal(t, 20.0, lines[1].SumTime)
	assert.Equal(t, 10.0, lines[2].SumTime)
	assert.Equal(t, 0.0, lines[3].SumTime)

	assert.Equal(t, 30.0, result.LabelTimes["main"])
	assert.Equal(t, 10.0, result.LabelTimes["internal"])
}

func TestPipeline_Idempotent(t *testing.T) {
	p := NewPipeline(DefaultOptions())
	msg := sampleMessage()

	first, err := p.Run(context.Background(), msg)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, first.Blocks, second.Blocks)
	assert.Equal(t, first.Files, second.Files)
	assert.Equal(t, first.LabelTimes, second.LabelTimes)
}

func TestPipeline_ZeroSamples(t *testing.T) {
	var msg model.Message
	require.NoError(t, json.Unmarshal([]byte(`{
		"prof": {"time": [], "depth": [], "label": [], "filename": [], "linenum": [], "filenum": []},
		"interval": 10,
		"files": [{"filename": "a.R", "content": "x <- 1\ny <- 2"}]
	}`), &msg))

	result, err := NewPipeline(DefaultOptions()).Run(context.Background(), &msg)
	require.NoError(t, err)

	assert.NotNil(t, result.Blocks)
	assert.Empty(t, result.Blocks)
	assert.Equal(t, 0.0, result.TotalTime)
	require.Len(t, result.Files[0].Lines, 2)
	for _, line := range result.Files[0].Lines {
		assert.Equal(t, 0.0, line.PropTime)
	}
	testutil.AssertNoNaN(t, result.Files)
}

func TestPipeline_DefaultInterval(t *testing.T) {
	msg := testutil.NewProfile().Stack(testutil.F("a")).Message(0)

	result, err := NewPipeline(Options{DefaultInterval: 20}).Run(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, 20.0, result.Interval)
	assert.Equal(t, 20.0, result.Blocks[0].EndTime)
}

func TestPipeline_ConfiguredMarkers(t *testing.T) {
	msg := testutil.NewProfile().
		Stack(testutil.F("a"), testutil.F("[["), testutil.F("b"), testutil.F("]]"), testutil.F("c")).
		Message(10)
	msg.CollapseItems = []model.MarkerPair{{Off: "[[", On: "]]"}}

	result, err := NewPipeline(DefaultOptions()).Run(context.Background(), msg)
	require.NoError(t, err)

	hidden := 0
	for _, b := range result.Blocks {
		if b.Hidden() {
			hidden++
		}
	}
	assert.Equal(t, 3, hidden)
}

func TestPipeline_Errors(t *testing.T) {
	tests := []struct {
		name   string
		msg    *model.Message
		target error
	}{
		{name: "nil message", msg: nil, target: apperrors.ErrMalformedInput},
		{
			name:   "unequal columns",
			msg:    &model.Message{Prof: model.Columns{"time": {1.0}, "depth": {1.0, 2.0}, "label": {"a"}}, Interval: 10},
			target: apperrors.ErrMalformedInput,
		},
		{
			name:   "negative interval",
			msg:    testutil.NewProfile().Stack(testutil.F("a")).Message(-1),
			target: apperrors.ErrMalformedInput,
		},
		{
			name:   "missing outermost frame",
			msg:    &model.Message{Prof: model.Columns{"time": {1.0}, "depth": {2.0}, "label": {"a"}}, Interval: 10},
			target: apperrors.ErrMalformedProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			p := NewPipeline(DefaultOptions(), WithObserver(obs))

			result, err := p.Run(context.Background(), tt.msg)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)

			require.Len(t, obs.errs, 1)
			assert.Equal(t, err, obs.errs[0])
		})
	}
}

func TestPipeline_RenderStats(t *testing.T) {
	obs := &recordingObserver{}
	clock := utils.NewMockClock(time.Unix(0, 0)).WithStep(time.Millisecond)
	p := NewPipeline(DefaultOptions(), WithObserver(obs), WithClock(clock), WithLogger(&utils.NullLogger{}))

	out, err := p.Render(context.Background(), sampleMessage())
	require.NoError(t, err)

	assert.Equal(t, 9, out.Stats.Samples)
	assert.Equal(t, len(out.Result.Blocks), out.Stats.Blocks)
	assert.Equal(t, out.Tree.Len()-1, out.Stats.Nodes)

	names := make([]string, 0, len(out.Stats.Stages))
	for _, s := range out.Stats.Stages {
		names = append(names, s.Name)
		assert.Positive(t, s.Duration)
	}
	assert.Equal(t, []string{
		StageRows, StageNormalize, StageTree, StageConsolidate,
		StageCollapse, StageBlocks, StageLines, StageLabels,
	}, names)

	require.Len(t, obs.stats, 1)
	assert.Same(t, out.Stats, obs.stats[0])
	assert.NoError(t, obs.errs[0])
}

package flamegraph

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profvis/internal/parser/collapsed"
	"github.com/profvis/internal/profile"
	"github.com/profvis/internal/testutil"
	"github.com/profvis/pkg/model"
)

func render(t *testing.T, b *testutil.ProfileBuilder) *profile.Output {
	t.Helper()
	out, err := profile.NewPipeline(profile.DefaultOptions()).Render(context.Background(), b.Message(10))
	require.NoError(t, err)
	return out
}

func sampleProfile() *testutil.ProfileBuilder {
	return testutil.NewProfile().
		Repeat(2, testutil.FL("main", "m.R", 1), testutil.FL("load", "m.R", 2)).
		Stack(testutil.FL("main", "m.R", 1), testutil.F(model.StackTraceOff), testutil.F("dispatch"),
			testutil.F(model.StackTraceOn), testutil.F("fit")).
		Stack(testutil.FL("main", "m.R", 1))
}

func TestGenerator_Generate(t *testing.T) {
	out := render(t, sampleProfile())

	fg, err := NewGenerator(nil).Generate(context.Background(), out.Tree, 10)
	require.NoError(t, err)

	assert.Equal(t, 40.0, fg.TotalTime)
	assert.Equal(t, 5, fg.MaxDepth)
	require.Len(t, fg.Root.Children, 1)

	main := fg.Root.Children[0]
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, "m.R", main.File)
	assert.Equal(t, 1, main.Line)
	assert.Equal(t, 40.0, main.Value)
	assert.Equal(t, 10.0, main.Self())
	require.Len(t, main.Children, 2)
	assert.Equal(t, "load", main.Children[0].Name)
	assert.Equal(t, 20.0, main.Children[0].Value)
	assert.Equal(t, model.StackTraceOff, main.Children[1].Name)
}

func TestGenerator_GenerateCollapsed(t *testing.T) {
	out := render(t, sampleProfile())

	fg, err := NewGenerator(&GeneratorOptions{Collapsed: true}).Generate(context.Background(), out.Tree, 10)
	require.NoError(t, err)

	main := fg.Root.Children[0]
	require.Len(t, main.Children, 2)
	assert.Equal(t, "fit", main.Children[1].Name)
	assert.Equal(t, 2, fg.MaxDepth)
	assert.True(t, fg.Collapsed)
}

func TestGenerator_MinPercent(t *testing.T) {
	out := render(t, testutil.NewProfile().
		Repeat(99, testutil.F("main"), testutil.F("hot")).
		Stack(testutil.F("main"), testutil.F("cold")))

	fg, err := NewGenerator(&GeneratorOptions{MinPercent: 5}).Generate(context.Background(), out.Tree, 10)
	require.NoError(t, err)

	main := fg.Root.Children[0]
	require.Len(t, main.Children, 1)
	assert.Equal(t, "hot", main.Children[0].Name)
}

func TestGenerator_Empty(t *testing.T) {
	out := render(t, testutil.NewProfile())

	fg, err := NewGenerator(nil).Generate(context.Background(), out.Tree, 10)
	require.NoError(t, err)
	assert.Empty(t, fg.Root.Children)
	assert.Equal(t, 0, fg.MaxDepth)
	assert.Equal(t, 0.0, fg.TotalTime)
}

func TestGenerator_Canceled(t *testing.T) {
	out := render(t, sampleProfile())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator(nil).Generate(ctx, out.Tree, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONWriter(t *testing.T) {
	out := render(t, testutil.NewProfile().Stack(testutil.F("main")))
	fg, err := NewGenerator(nil).Generate(context.Background(), out.Tree, 10)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = NewJSONWriter(nil).Write(fg, &buf)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 10.0, decoded["totalTime"])
	root := decoded["root"].(map[string]interface{})
	assert.Equal(t, "root", root["name"])
	assert.Len(t, root["children"], 1)
}

func TestFoldedWriter_RoundTrip(t *testing.T) {
	out := render(t, sampleProfile())
	fg, err := NewGenerator(nil).Generate(context.Background(), out.Tree, 10)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewFoldedWriter().Write(fg, &buf))

	assert.Equal(t, strings.Join([]string{
		"main (m.R:1) 1",
		"main (m.R:1);load (m.R:2) 2",
		"main (m.R:1);..stacktraceoff..;dispatch;..stacktraceon..;fit 1",
		"",
	}, "\n"), buf.String())

	msg, err := collapsed.NewParser(nil).Parse(context.Background(), &buf)
	require.NoError(t, err)
	again, err := profile.NewPipeline(profile.DefaultOptions()).Run(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, out.Result.LabelTimes, again.LabelTimes)
}

package profile

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/profvis/pkg/errors"
	"github.com/profvis/pkg/model"
)

func TestColToRows_RoundTrip(t *testing.T) {
	rows := []model.Row{
		{"time": 1, "depth": 1, "label": "main", "filename": nil},
		{"time": 1, "depth": 2, "label": "work", "filename": "a.R"},
		{"time": 2, "depth": 1, "label": "main", "filename": nil},
	}

	cols, err := RowsToCols(rows)
	require.NoError(t, err)
	assert.Len(t, cols, 4)
	assert.Equal(t, []interface{}{1, 1, 2}, cols["time"])

	back, err := ColToRows(cols)
	require.NoError(t, err)
	assert.Equal(t, rows, back)
}

func TestColToRows_Empty(t *testing.T) {
	rows, err := ColToRows(model.Columns{})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	rows, err = ColToRows(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestColToRows_UnequalLengths(t *testing.T) {
	_, err := ColToRows(model.Columns{
		"time":  {1, 2},
		"depth": {1},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMalformedInput))
}

func TestRowsToCols_InconsistentFields(t *testing.T) {
	_, err := RowsToCols([]model.Row{
		{"time": 1, "depth": 1},
		{"time": 2, "label": "x"},
	})
	assert.True(t, apperrors.IsMalformedInput(err))
}

func TestSamplesFromColumns(t *testing.T) {
	var cols model.Columns
	require.NoError(t, json.Unmarshal([]byte(`{
		"time": [1, 1],
		"depth": [1, 2],
		"label": ["main", "work"],
		"filename": [null, "a.R"],
		"linenum": [null, 12],
		"filenum": [null, 1]
	}`), &cols))

	samples, err := SamplesFromColumns(cols)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, model.Sample{Time: 1, Depth: 1, Label: "main"}, samples[0])
	assert.False(t, samples[0].HasSource())
	assert.Equal(t, model.Sample{Time: 1, Depth: 2, Label: "work", Filename: "a.R", Linenum: 12, Filenum: 1}, samples[1])
	assert.True(t, samples[1].HasSource())
}

func TestSamplesFromColumns_Errors(t *testing.T) {
	tests := []struct {
		name string
		cols model.Columns
	}{
		{
			name: "missing label column",
			cols: model.Columns{"time": {1.0}, "depth": {1.0}},
		},
		{
			name: "non integer time",
			cols: model.Columns{"time": {1.5}, "depth": {1.0}, "label": {"a"}},
		},
		{
			name: "zero depth",
			cols: model.Columns{"time": {1.0}, "depth": {0.0}, "label": {"a"}},
		},
		{
			name: "numeric label",
			cols: model.Columns{"time": {1.0}, "depth": {1.0}, "label": {3.0}},
		},
		{
			name: "numeric filename",
			cols: model.Columns{"time": {1.0}, "depth": {1.0}, "label": {"a"}, "filename": {7.0}},
		},
		{
			name: "string linenum",
			cols: model.Columns{"time": {1.0}, "depth": {1.0}, "label": {"a"}, "linenum": {"12"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SamplesFromColumns(tt.cols)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrMalformedInput), "got %v", err)
		})
	}
}

func TestSamplesFromColumns_EmptyColumns(t *testing.T) {
	samples, err := SamplesFromColumns(model.Columns{
		"time": {}, "depth": {}, "label": {},
	})
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    int
		wantErr bool
	}{
		{in: 3, want: 3},
		{in: int32(4), want: 4},
		{in: int64(5), want: 5},
		{in: 6.0, want: 6},
		{in: json.Number("7"), want: 7},
		{in: json.Number("7.5"), wantErr: true},
		{in: 2.5, wantErr: true},
		{in: true, wantErr: true},
	}
	for _, tt := range tests {
		got, err := toInt("n", tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalize(t *testing.T) {
	frames, err := Normalize([]model.Sample{
		{Time: 1, Depth: 1, Label: "a"},
		{Time: 3, Depth: 1, Label: "a"},
	}, 10)
	require.NoError(t, err)

	assert.Equal(t, 0.0, frames[0].StartTime)
	assert.Equal(t, 10.0, frames[0].EndTime)
	assert.Equal(t, 20.0, frames[1].StartTime)
	assert.Equal(t, 30.0, frames[1].EndTime)
	assert.Equal(t, 3, frames[1].Time)
}

func TestNormalize_InvalidInterval(t *testing.T) {
	for _, interval := range []float64{0, -5} {
		_, err := Normalize(nil, interval)
		assert.True(t, apperrors.IsMalformedInput(err), "interval %v", interval)
	}
}

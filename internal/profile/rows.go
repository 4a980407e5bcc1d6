package profile

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"

	apperrors "github.com/profvis/pkg/errors"
	"github.com/profvis/pkg/model"
)

var requiredColumns = []string{model.ColumnTime, model.ColumnDepth, model.ColumnLabel}

// ColToRows converts column-oriented data into one row per index.
// An empty column set yields an empty slice.
func ColToRows(cols model.Columns) ([]model.Row, error) {
	if len(cols) == 0 {
		return []model.Row{}, nil
	}

	names := slices.Sorted(maps.Keys(cols))
	n := len(cols[names[0]])
	for _, name := range names[1:] {
		if len(cols[name]) != n {
			return nil, apperrors.MalformedInput("column %q has %d values, column %q has %d",
				name, len(cols[name]), names[0], n)
		}
	}

	rows := make([]model.Row, n)
	for i := 0; i < n; i++ {
		row := make(model.Row, len(names))
		for _, name := range names {
			row[name] = cols[name][i]
		}
		rows[i] = row
	}
	return rows, nil
}

// RowsToCols is the inverse of ColToRows. Every row must carry the same set
// of fields.
func RowsToCols(rows []model.Row) (model.Columns, error) {
	cols := make(model.Columns)
	if len(rows) == 0 {
		return cols, nil
	}

	names := slices.Sorted(maps.Keys(rows[0]))
	for _, name := range names {
		cols[name] = make([]interface{}, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, apperrors.MalformedInput("row %d has %d fields, expected %d", i, len(row), len(names))
		}
		for _, name := range names {
			v, ok := row[name]
			if !ok {
				return nil, apperrors.MalformedInput("row %d is missing field %q", i, name)
			}
			cols[name][i] = v
		}
	}
	return cols, nil
}

// SamplesFromColumns materializes and decodes a columnar profile.
func SamplesFromColumns(cols model.Columns) ([]model.Sample, error) {
	if len(cols) == 0 {
		return []model.Sample{}, nil
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, apperrors.MalformedInput("required column %q is missing", name)
		}
	}

	rows, err := ColToRows(cols)
	if err != nil {
		return nil, err
	}
	return SamplesFromRows(rows)
}

// SamplesFromRows decodes generic rows into typed samples. time, depth and
// label are required; filename, linenum and filenum may be absent or null.
func SamplesFromRows(rows []model.Row) ([]model.Sample, error) {
	samples := make([]model.Sample, len(rows))
	for i, row := range rows {
		s, err := sampleFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		samples[i] = s
	}
	return samples, nil
}

func sampleFromRow(row model.Row) (model.Sample, error) {
	var s model.Sample
	var err error

	if s.Time, err = requiredInt(row, model.ColumnTime); err != nil {
		return s, err
	}
	if s.Time < 1 {
		return s, apperrors.MalformedInput("time must be >= 1, got %d", s.Time)
	}
	if s.Depth, err = requiredInt(row, model.ColumnDepth); err != nil {
		return s, err
	}
	if s.Depth < 1 {
		return s, apperrors.MalformedInput("depth must be >= 1, got %d", s.Depth)
	}

	label, ok := row[model.ColumnLabel].(string)
	if !ok {
		return s, apperrors.MalformedInput("label must be a string, got %T", row[model.ColumnLabel])
	}
	s.Label = label

	switch v := row[model.ColumnFilename].(type) {
	case nil:
	case string:
		s.Filename = v
	default:
		return s, apperrors.MalformedInput("filename must be a string or null, got %T", v)
	}

	if s.Linenum, err = optionalInt(row, model.ColumnLinenum); err != nil {
		return s, err
	}
	if s.Filenum, err = optionalInt(row, model.ColumnFilenum); err != nil {
		return s, err
	}
	return s, nil
}

func requiredInt(row model.Row, name string) (int, error) {
	v, ok := row[name]
	if !ok || v == nil {
		return 0, apperrors.MalformedInput("%s is required", name)
	}
	return toInt(name, v)
}

func optionalInt(row model.Row, name string) (int, error) {
	v, ok := row[name]
	if !ok || v == nil {
		return 0, nil
	}
	return toInt(name, v)
}

// toInt accepts the numeric shapes encoding/json and Go callers produce.
func toInt(name string, v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if math.IsNaN(n) {
			return 0, nil
		}
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, apperrors.MalformedInput("%s must be an integer, got %v", name, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, apperrors.MalformedInput("%s must be an integer, got %s", name, n)
		}
		return int(i), nil
	default:
		return 0, apperrors.MalformedInput("%s must be numeric, got %T", name, v)
	}
}

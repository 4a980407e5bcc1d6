// Package testutil provides fixtures and assertions shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/profvis/pkg/model"
)

// StackFrame is one entry of a test stack, outermost first.
type StackFrame struct {
	Label    string
	Filename string
	Linenum  int
}

// F is a frame without a source reference.
func F(label string) StackFrame {
	return StackFrame{Label: label}
}

// FL is a frame that maps to filename:linenum.
func FL(label, filename string, linenum int) StackFrame {
	return StackFrame{Label: label, Filename: filename, Linenum: linenum}
}

// ProfileBuilder assembles columnar profiles one tick at a time. Values are
// stored the way encoding/json decodes them: numbers as float64 and missing
// source references as nil.
type ProfileBuilder struct {
	cols  model.Columns
	tick  int
	files []model.SourceFile
}

// NewProfile starts an empty profile.
func NewProfile() *ProfileBuilder {
	cols := make(model.Columns)
	for _, name := range []string{
		model.ColumnTime, model.ColumnDepth, model.ColumnLabel,
		model.ColumnFilename, model.ColumnLinenum, model.ColumnFilenum,
	} {
		cols[name] = []interface{}{}
	}
	return &ProfileBuilder{cols: cols}
}

// Stack appends one tick whose stack is frames, outermost first.
func (b *ProfileBuilder) Stack(frames ...StackFrame) *ProfileBuilder {
	b.tick++
	for i, f := range frames {
		var filename, linenum, filenum interface{}
		if f.Filename != "" {
			filename = f.Filename
			linenum = float64(f.Linenum)
			filenum = float64(1)
		}
		b.cols[model.ColumnTime] = append(b.cols[model.ColumnTime], float64(b.tick))
		b.cols[model.ColumnDepth] = append(b.cols[model.ColumnDepth], float64(i+1))
		b.cols[model.ColumnLabel] = append(b.cols[model.ColumnLabel], f.Label)
		b.cols[model.ColumnFilename] = append(b.cols[model.ColumnFilename], filename)
		b.cols[model.ColumnLinenum] = append(b.cols[model.ColumnLinenum], linenum)
		b.cols[model.ColumnFilenum] = append(b.cols[model.ColumnFilenum], filenum)
	}
	return b
}

// Repeat appends the same stack n times.
func (b *ProfileBuilder) Repeat(n int, frames ...StackFrame) *ProfileBuilder {
	for i := 0; i < n; i++ {
		b.Stack(frames...)
	}
	return b
}

// Skip advances the tick counter without recording samples.
func (b *ProfileBuilder) Skip(n int) *ProfileBuilder {
	b.tick += n
	return b
}

// File registers a tracked source file.
func (b *ProfileBuilder) File(filename, content string) *ProfileBuilder {
	b.files = append(b.files, model.SourceFile{Filename: filename, Content: content})
	return b
}

// Columns returns the columnar data.
func (b *ProfileBuilder) Columns() model.Columns {
	return b.cols
}

// Message wraps the profile in a message with the given interval.
func (b *ProfileBuilder) Message(interval float64) *model.Message {
	return &model.Message{
		Prof:     b.cols,
		Interval: interval,
		Files:    b.files,
	}
}

// WriteFile writes content to dir/filename and returns the path.
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

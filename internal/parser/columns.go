package parser

import (
	"github.com/profvis/pkg/model"
)

// Frame is one stack entry produced by an importer.
type Frame struct {
	Label    string
	Filename string
	Linenum  int
}

// ColumnsBuilder accumulates stacks into the columnar message encoding.
// Each stack added with a count of n occupies n consecutive ticks.
type ColumnsBuilder struct {
	limits   Limits
	tick     int
	fileNums map[string]int

	time     []interface{}
	depth    []interface{}
	label    []interface{}
	filename []interface{}
	linenum  []interface{}
	filenum  []interface{}
}

// NewColumnsBuilder creates a builder bounded by limits' tick and row caps.
func NewColumnsBuilder(limits Limits) *ColumnsBuilder {
	return &ColumnsBuilder{limits: limits.WithDefaults(), fileNums: make(map[string]int)}
}

// AddStack appends count ticks of frames, outermost first. Empty stacks and
// non-positive counts are ignored. A stack that would exceed the tick or row
// limit is rejected whole.
func (b *ColumnsBuilder) AddStack(frames []Frame, count int64) error {
	if len(frames) == 0 || count <= 0 {
		return nil
	}
	if count > int64(b.limits.MaxTicks-b.tick) {
		return ErrTooManyTicks
	}
	if count > int64((b.limits.MaxRows-len(b.time))/len(frames)) {
		return ErrTooManyRows
	}
	for i := int64(0); i < count; i++ {
		b.tick++
		for d, f := range frames {
			b.time = append(b.time, b.tick)
			b.depth = append(b.depth, d+1)
			b.label = append(b.label, f.Label)
			if f.Filename == "" {
				b.filename = append(b.filename, nil)
				b.linenum = append(b.linenum, nil)
				b.filenum = append(b.filenum, nil)
				continue
			}
			b.filename = append(b.filename, f.Filename)
			b.linenum = append(b.linenum, f.Linenum)
			b.filenum = append(b.filenum, b.fileNum(f.Filename))
		}
	}
	return nil
}

// Ticks returns the number of ticks recorded so far.
func (b *ColumnsBuilder) Ticks() int {
	return b.tick
}

// Filenames returns referenced source files in order of first appearance.
func (b *ColumnsBuilder) Filenames() []string {
	names := make([]string, len(b.fileNums))
	for name, num := range b.fileNums {
		names[num-1] = name
	}
	return names
}

// Columns returns the accumulated columns.
func (b *ColumnsBuilder) Columns() model.Columns {
	return model.Columns{
		model.ColumnTime:     nonNil(b.time),
		model.ColumnDepth:    nonNil(b.depth),
		model.ColumnLabel:    nonNil(b.label),
		model.ColumnFilename: nonNil(b.filename),
		model.ColumnLinenum:  nonNil(b.linenum),
		model.ColumnFilenum:  nonNil(b.filenum),
	}
}

// Message wraps the columns with interval.
func (b *ColumnsBuilder) Message(interval float64) *model.Message {
	return &model.Message{
		Prof:     b.Columns(),
		Interval: interval,
		Files:    []model.SourceFile{},
	}
}

func (b *ColumnsBuilder) fileNum(name string) int {
	if n, ok := b.fileNums[name]; ok {
		return n
	}
	n := len(b.fileNums) + 1
	b.fileNums[name] = n
	return n
}

func nonNil(values []interface{}) []interface{} {
	if values == nil {
		return []interface{}{}
	}
	return values
}

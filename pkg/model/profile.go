// Package model defines the core data structures used throughout the application.
package model

// Columns is the columnar encoding of a profile: field name to one value per
// sample. All columns hold the same number of values.
type Columns map[string][]interface{}

// Row is one sample in row-oriented form: field name to value.
type Row map[string]interface{}

// Well-known profile column names.
const (
	ColumnTime     = "time"
	ColumnDepth    = "depth"
	ColumnLabel    = "label"
	ColumnFilename = "filename"
	ColumnLinenum  = "linenum"
	ColumnFilenum  = "filenum"
)

// Sample is one recorded (time, depth) observation of the call stack.
// Filename, Linenum and Filenum are zero when the frame has no source reference.
type Sample struct {
	Time     int    `json:"time"`
	Depth    int    `json:"depth"`
	Label    string `json:"label"`
	Filename string `json:"filename,omitempty"`
	Linenum  int    `json:"linenum,omitempty"`
	Filenum  int    `json:"filenum,omitempty"`
}

// HasSource reports whether the sample points at a source line.
func (s Sample) HasSource() bool {
	return s.Filename != "" && s.Linenum > 0
}

// Frame is a Sample whose tick index has been converted to an absolute
// [StartTime, EndTime) range in milliseconds. Time is kept for grouping.
type Frame struct {
	Sample
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// Block is a consolidated, maximal run of consecutive frames sharing depth,
// label and source location.
type Block struct {
	Depth          int     `json:"depth"`
	DepthCollapsed *int    `json:"depthCollapsed"`
	Label          string  `json:"label"`
	Filename       string  `json:"filename,omitempty"`
	Linenum        int     `json:"linenum,omitempty"`
	Filenum        int     `json:"filenum,omitempty"`
	StartTime      float64 `json:"startTime"`
	EndTime        float64 `json:"endTime"`
}

// Duration returns the block's length in milliseconds.
func (b Block) Duration() float64 {
	return b.EndTime - b.StartTime
}

// Hidden reports whether the block is hidden in the collapsed view.
func (b Block) Hidden() bool {
	return b.DepthCollapsed == nil
}

// DisplayDepth returns the depth to draw the block at. ok is false when the
// block is hidden in the collapsed view.
func (b Block) DisplayDepth(collapsed bool) (depth int, ok bool) {
	if !collapsed {
		return b.Depth, true
	}
	if b.DepthCollapsed == nil {
		return 0, false
	}
	return *b.DepthCollapsed, true
}

package model

// LineTime is the attributed time of one physical source line.
type LineTime struct {
	Filename string  `json:"filename"`
	Linenum  int     `json:"linenum"`
	Content  string  `json:"content"`
	SumTime  float64 `json:"sumTime"`
	PropTime float64 `json:"propTime"`
}

// FileLineTimes holds one entry per line of a tracked file.
type FileLineTimes struct {
	Filename string     `json:"filename"`
	Lines    []LineTime `json:"lineData"`
}

// NonZero returns the lines that received any time.
func (f FileLineTimes) NonZero() []LineTime {
	lines := make([]LineTime, 0, len(f.Lines))
	for _, line := range f.Lines {
		if line.SumTime > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

// LabelTimes maps a frame label to its attributed time in milliseconds.
type LabelTimes map[string]float64

// Result is everything the renderer needs for one profile.
type Result struct {
	Interval    float64             `json:"interval"`
	TotalTime   float64             `json:"totalTime"`
	SampleCount int                 `json:"sampleCount"`
	MaxDepth    int                 `json:"maxDepth"`
	Collapse    bool                `json:"collapse"`
	Blocks      []Block             `json:"blocks"`
	Files       []FileLineTimes     `json:"files"`
	LabelTimes  LabelTimes          `json:"labelTimes"`
	Highlight   map[string]Patterns `json:"highlight,omitempty"`
}

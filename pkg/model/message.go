package model

import (
	"encoding/json"
	"fmt"
)

// Default stack-trace marker labels. Frames between an off marker and its
// matching on marker are internal and hidden in the collapsed view.
const (
	StackTraceOff = "..stacktraceoff.."
	StackTraceOn  = "..stacktraceon.."
)

// Message is the wire payload handed over by the host page.
type Message struct {
	Prof          Columns             `json:"prof"`
	Interval      float64             `json:"interval"`
	Files         []SourceFile        `json:"files"`
	Collapse      bool                `json:"collapse,omitempty"`
	CollapseItems []MarkerPair        `json:"collapseItems,omitempty"`
	Highlight     map[string]Patterns `json:"highlight,omitempty"`
}

// SourceFile is a tracked source file and its full text.
type SourceFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// MarkerPair names the labels that open and close a hidden region.
type MarkerPair struct {
	Off string `json:"off"`
	On  string `json:"on"`
}

// DefaultMarkers returns the built-in stack-trace marker pair.
func DefaultMarkers() []MarkerPair {
	return []MarkerPair{{Off: StackTraceOff, On: StackTraceOn}}
}

// Patterns is a list of regular expressions. It decodes from either a single
// JSON string or an array of strings, since hosts serialize length-one
// vectors both ways.
type Patterns []string

// UnmarshalJSON implements json.Unmarshaler.
func (p *Patterns) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*p = Patterns{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("highlight pattern must be a string or a list of strings: %w", err)
	}
	*p = Patterns(many)
	return nil
}

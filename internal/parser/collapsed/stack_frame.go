// Package collapsed imports folded stacks ("a;b;c 12" per line), the format
// produced by stackcollapse scripts, async-profiler and perf.
package collapsed

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/profvis/internal/parser"
)

// "fit (model.R:42)" carries a source reference.
var sourceFrameRegex = regexp.MustCompile(`^(.+?) \(([^()]+):(\d+)\)$`)

// Invalid data pattern: 5_2175795_[002]_83367.826506:-?/10101010
var invalidDataRegex = regexp.MustCompile(`^\d+_\d+_`)

// ParseFrame splits a raw frame into label and optional source location.
// e.g., "fit (model.R:42)" => ("fit", "model.R", 42)
// e.g., "java.lang.Thread.run" => ("java.lang.Thread.run", "", 0)
func ParseFrame(raw string) parser.Frame {
	m := sourceFrameRegex.FindStringSubmatch(raw)
	if m == nil {
		return parser.Frame{Label: raw}
	}
	line, err := strconv.Atoi(m[3])
	if err != nil || line < 1 {
		return parser.Frame{Label: raw}
	}
	return parser.Frame{Label: m[1], Filename: m[2], Linenum: line}
}

// ParseCallStack splits a semicolon-separated stack into frames, outermost
// first. Empty segments are dropped.
func ParseCallStack(stack string) []parser.Frame {
	parts := strings.Split(stack, ";")
	frames := make([]parser.Frame, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "[]" {
			continue
		}
		frames = append(frames, ParseFrame(part))
	}
	return frames
}

// IsSwapperThread checks if the first frame is the swapper (idle) thread.
func IsSwapperThread(firstFrame string) bool {
	return strings.HasPrefix(firstFrame, "swapper-") || firstFrame == "swapper"
}

// IsInvalidData checks if the first frame matches perf's corrupt record
// pattern, e.g. "5_2175795_[002]_83367.826506:-?/10101010".
func IsInvalidData(firstFrame string) bool {
	return invalidDataRegex.MatchString(firstFrame)
}

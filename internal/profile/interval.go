package profile

import (
	"math"

	apperrors "github.com/profvis/pkg/errors"
	"github.com/profvis/pkg/model"
)

// Normalize converts 1-based tick indices into absolute millisecond ranges:
// tick t covers [interval*(t-1), interval*t).
func Normalize(samples []model.Sample, interval float64) ([]model.Frame, error) {
	if !(interval > 0) || math.IsInf(interval, 0) {
		return nil, apperrors.MalformedInput("interval must be a positive number, got %v", interval)
	}

	frames := make([]model.Frame, len(samples))
	for i, s := range samples {
		frames[i] = model.Frame{
			Sample:    s,
			StartTime: tickStart(s.Time, interval),
			EndTime:   tickEnd(s.Time, interval),
		}
	}
	return frames, nil
}

func tickStart(tick int, interval float64) float64 {
	return interval * float64(tick-1)
}

func tickEnd(tick int, interval float64) float64 {
	return interval * float64(tick)
}

package utils

import (
	"strings"
	"time"
)

// Stage is one timed step of a run.
type Stage struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// StageTimer records sequential stage durations. It is not safe for
// concurrent use; each run owns its own timer.
type StageTimer struct {
	clock   Clock
	started time.Time
	stages  []Stage
}

// NewStageTimer creates a timer. A nil clock means the real clock.
func NewStageTimer(clock Clock) *StageTimer {
	if clock == nil {
		clock = NewRealClock()
	}
	return &StageTimer{clock: clock, started: clock.Now()}
}

// Time runs fn as the named stage and records how long it took.
func (t *StageTimer) Time(name string, fn func() error) error {
	start := t.clock.Now()
	err := fn()
	t.stages = append(t.stages, Stage{Name: name, Duration: t.clock.Since(start)})
	return err
}

// Run is Time for a stage that cannot fail.
func (t *StageTimer) Run(name string, fn func()) {
	start := t.clock.Now()
	fn()
	t.stages = append(t.stages, Stage{Name: name, Duration: t.clock.Since(start)})
}

// Stages returns the recorded stages in execution order.
func (t *StageTimer) Stages() []Stage {
	out := make([]Stage, len(t.stages))
	copy(out, t.stages)
	return out
}

// Total returns the time since the timer was created.
func (t *StageTimer) Total() time.Duration {
	return t.clock.Since(t.started)
}

// Summary renders "name=duration" pairs in execution order.
func (t *StageTimer) Summary() string {
	parts := make([]string, 0, len(t.stages)+1)
	for _, s := range t.stages {
		parts = append(parts, s.Name+"="+s.Duration.String())
	}
	parts = append(parts, "total="+t.Total().String())
	return strings.Join(parts, " ")
}

// Log writes the summary at debug level.
func (t *StageTimer) Log(logger Logger, prefix string) {
	if logger == nil {
		return
	}
	logger.Debug("%s %s", prefix, t.Summary())
}

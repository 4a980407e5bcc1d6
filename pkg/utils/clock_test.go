package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	assert.Equal(t, start, clock.Now())
	clock.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), clock.Now())
	assert.Equal(t, time.Minute, clock.Since(start))
}

func TestMockClock_Step(t *testing.T) {
	start := time.Unix(0, 0)
	clock := NewMockClock(start).WithStep(time.Millisecond)

	first := clock.Now()
	assert.Equal(t, start.Add(time.Millisecond), first)
	assert.Equal(t, time.Millisecond, clock.Since(first))
}

func TestRealClock(t *testing.T) {
	clock := NewRealClock()
	before := time.Now()
	assert.False(t, clock.Now().Before(before))
	assert.GreaterOrEqual(t, clock.Since(before), time.Duration(0))
}

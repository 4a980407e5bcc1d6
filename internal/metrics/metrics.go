// Package metrics exposes Prometheus metrics for profile rendering.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/profvis/internal/profile"
	apperrors "github.com/profvis/pkg/errors"
)

const namespace = "profvis"

// Collector records pipeline runs. It implements profile.Observer.
type Collector struct {
	runs          *prometheus.CounterVec
	samples       prometheus.Histogram
	blocks        prometheus.Histogram
	stageDuration *prometheus.HistogramVec
}

var _ profile.Observer = (*Collector)(nil)

// NewCollector registers the render metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_runs_total",
			Help:      "Total number of profile renders, by result code.",
		}, []string{"code"}),
		samples: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_samples",
			Help:      "Number of samples per rendered profile.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		blocks: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_blocks",
			Help:      "Number of flame graph blocks per rendered profile.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		// 8 buckets from 100us to 1.6s.
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_stage_duration_seconds",
			Help:      "Time spent in each render stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"stage"}),
	}
}

// ObserveRun records one finished run.
func (c *Collector) ObserveRun(stats *profile.RunStats, err error) {
	code := "OK"
	if err != nil {
		code = apperrors.GetErrorCode(err)
	}
	c.runs.WithLabelValues(code).Inc()
	if stats == nil {
		return
	}
	for _, s := range stats.Stages {
		c.stageDuration.WithLabelValues(s.Name).Observe(s.Duration.Seconds())
	}
	if err == nil {
		c.samples.Observe(float64(stats.Samples))
		c.blocks.Observe(float64(stats.Blocks))
	}
}

package report

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are boring counters derived only from Results.
type Metrics struct {
	registry *prometheus.Registry

	started  prometheus.Counter
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	running  prometheus.Gauge
}

// NewMetrics creates metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "subproc",
			Name:      "runs_started_total",
			Help:      "Child processes launched.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "subproc",
			Name:      "runs_total",
			Help:      "Finished runs by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "subproc",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock time of finished runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 4, 8),
		}, []string{"outcome"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "subproc",
			Name:      "runs_in_progress",
			Help:      "Child processes currently being supervised.",
		}),
	}
	m.registry.MustRegister(m.started, m.runs, m.duration, m.running)
	return m
}

// Registry exposes the registry for HTTP serving and text export.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncrStarted records a launched run.
func (m *Metrics) IncrStarted() {
	m.started.Inc()
	m.running.Inc()
}

// RecordResult updates all counters from a single immutable Result.
// This is the only way to update outcome metrics.
func (m *Metrics) RecordResult(r *Result) {
	outcome := r.Outcome()
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(r.Duration.Seconds())
	m.running.Dec()
}

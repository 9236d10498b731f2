// Package metrics exports acquisition counters for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/scheduler"
)

var (
	// Attempts counts polling cycles per provider.
	Attempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "railsched_attempts_total",
			Help: "Total number of polling cycles",
		},
		[]string{"provider"},
	)

	// Failures counts classified errors.
	Failures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "railsched_failures_total",
			Help: "Total number of classified backend errors",
		},
		[]string{"provider", "category"},
	)

	// Runs counts finished runs by final state.
	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "railsched_runs_total",
			Help: "Total number of finished acquisition runs",
		},
		[]string{"provider", "state"},
	)

	// RunDuration tracks wall time until a run finishes.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "railsched_run_duration_seconds",
			Help:    "Time from start to finish of an acquisition run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"provider", "state"},
	)

	// Elapsed is the running time of the current run.
	Elapsed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "railsched_run_elapsed_seconds",
			Help: "Elapsed time of the current acquisition run",
		},
		[]string{"provider"},
	)
)

// Observer feeds a run's progress into the collectors.
type Observer struct {
	Provider rail.Provider
}

func (o Observer) Attempt(_ int, elapsed time.Duration) {
	p := string(o.Provider)
	Attempts.WithLabelValues(p).Inc()
	Elapsed.WithLabelValues(p).Set(elapsed.Seconds())
}

func (o Observer) Failure(rec scheduler.Recovery, err error) {
	p := string(o.Provider)
	if re, ok := rail.AsError(err); ok && re.Provider != "" {
		p = string(re.Provider)
	}
	Failures.WithLabelValues(p, rec.Category.String()).Inc()
}

func (o Observer) Finished(res scheduler.Result) {
	p := string(o.Provider)
	Runs.WithLabelValues(p, res.State.String()).Inc()
	RunDuration.WithLabelValues(p, res.State.String()).Observe(res.Elapsed.Seconds())
	Elapsed.WithLabelValues(p).Set(res.Elapsed.Seconds())
}

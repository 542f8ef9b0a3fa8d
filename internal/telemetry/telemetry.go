// Package telemetry exposes the collector's own operational health —
// poll-cycle duration and failure counts per scheduled job — as
// Prometheus metrics, served alongside the read API (spec §4.1/§9).
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the collector's Prometheus metrics. It is passed to
// internal/scheduler so every job execution updates it directly,
// avoiding a second bookkeeping structure next to the scheduler's own
// execution history.
type Registry struct {
	reg *prometheus.Registry

	jobRuns     *prometheus.CounterVec
	jobFailures *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

// New builds a Registry with the collector's metric families
// registered against a fresh, unexported Prometheus registry (not the
// default global one, so tests and multiple collectors in one process
// never collide).
func New() *Registry {
	r := prometheus.NewRegistry()

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "panfm",
		Subsystem: "scheduler",
		Name:      "job_runs_total",
		Help:      "Total executions of a scheduled job.",
	}, []string{"job"})

	jobFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "panfm",
		Subsystem: "scheduler",
		Name:      "job_failures_total",
		Help:      "Total failed executions of a scheduled job.",
	}, []string{"job"})

	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "panfm",
		Subsystem: "scheduler",
		Name:      "job_duration_seconds",
		Help:      "Duration of scheduled job executions.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})

	r.MustRegister(jobRuns, jobFailures, jobDuration, prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return &Registry{reg: r, jobRuns: jobRuns, jobFailures: jobFailures, jobDuration: jobDuration}
}

// ObserveJob records one scheduled job execution's outcome. It is
// invoked from internal/scheduler.Scheduler.record on every run.
func (r *Registry) ObserveJob(name string, dur time.Duration, failed bool) {
	r.jobRuns.WithLabelValues(name).Inc()
	r.jobDuration.WithLabelValues(name).Observe(dur.Seconds())
	if failed {
		r.jobFailures.WithLabelValues(name).Inc()
	}
}

// Handler returns the HTTP handler that serves this registry's metrics
// in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Package jobmetrics instruments background task runs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker instruments a single task run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts a tracker for the given task type.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records duration and outcome and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// Skip records a run dropped without retry, e.g. because its target vanished.
func (m *Metrics) Skip(job, reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(job, reason).Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_jobs_skipped_total",
		Help: "Jobs dropped without retry, by reason.",
	}, []string{"job", "reason"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	registerer.MustRegister(runs, failures, skipped, duration)
	return &Metrics{runs: runs, failures: failures, skipped: skipped, duration: duration}
}

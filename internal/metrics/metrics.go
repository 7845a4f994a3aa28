package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instrumentation for the documentation pipeline.
// A nil *Metrics is valid and records nothing, so callers never have
// to guard their instrumentation sites.
type Metrics struct {
	registry *prometheus.Registry

	jobsTotal      *prometheus.CounterVec
	stagesTotal    *prometheus.CounterVec
	generatorCalls *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	queueDepth     prometheus.Gauge
}

// New creates a Metrics backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsmith",
			Name:      "jobs_total",
			Help:      "Jobs finished, by terminal status.",
		}, []string{"status"}),
		stagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsmith",
			Name:      "stages_total",
			Help:      "Pipeline stages finished, by stage and outcome.",
		}, []string{"stage", "outcome"}),
		generatorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsmith",
			Name:      "generator_calls_total",
			Help:      "Model invocations, by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docsmith",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock time spent per pipeline stage.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "docsmith",
			Name:      "queue_depth",
			Help:      "Jobs waiting in the work queue.",
		}),
	}

	reg.MustRegister(m.jobsTotal, m.stagesTotal, m.generatorCalls, m.stageDuration, m.queueDepth)
	return m
}

// Handler serves the metrics in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// JobFinished records a job reaching a terminal status.
func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(status).Inc()
}

// StageFinished records a stage outcome ("completed" or "failed").
func (m *Metrics) StageFinished(stage, outcome string) {
	if m == nil {
		return
	}
	m.stagesTotal.WithLabelValues(stage, outcome).Inc()
}

// GeneratorCall records a model invocation outcome.
func (m *Metrics) GeneratorCall(outcome string) {
	if m == nil {
		return
	}
	m.generatorCalls.WithLabelValues(outcome).Inc()
}

// ObserveStageDuration records how long a stage ran.
func (m *Metrics) ObserveStageDuration(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// SetQueueDepth records the current number of queued jobs.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

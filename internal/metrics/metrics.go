// Package metrics exposes benchmark timings as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/born-ml/benchmarks/internal/benchmark"
	"github.com/born-ml/benchmarks/internal/record"
)

// Metrics holds the harness collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	IterationSeconds *prometheus.HistogramVec
	AverageMs        *prometheus.GaugeVec
	ReferenceRatio   *prometheus.GaugeVec
	RunsTotal        *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.IterationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "born_bench_iteration_seconds",
			Help:    "Duration of timed benchmark calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		},
		[]string{"model", "function"},
	)
	m.AverageMs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "born_bench_average_time_ms",
			Help: "Average time per iteration of the last run in milliseconds",
		},
		[]string{"model", "function"},
	)
	m.ReferenceRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "born_bench_reference_ratio",
			Help: "Measured average divided by the reference average",
		},
		[]string{"model", "function"},
	)
	m.RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "born_bench_runs_total",
			Help: "Total number of benchmark records produced",
		},
		[]string{"model", "function"},
	)

	m.registry.MustRegister(m.IterationSeconds, m.AverageMs, m.ReferenceRatio, m.RunsTotal)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveIteration implements benchmark.Observer.
func (m *Metrics) ObserveIteration(model string, fn benchmark.Function, ms float64) {
	m.IterationSeconds.WithLabelValues(model, fn.String()).Observe(ms / 1000)
}

// ObserveRun implements benchmark.Observer.
func (m *Metrics) ObserveRun(run record.BenchmarkRun) {
	m.AverageMs.WithLabelValues(run.ModelName, run.FunctionName).Set(run.AverageTimeMs)
	if run.ReferenceAverageTimeMs > 0 {
		m.ReferenceRatio.WithLabelValues(run.ModelName, run.FunctionName).Set(run.AverageTimeMs / run.ReferenceAverageTimeMs)
	}
	m.RunsTotal.WithLabelValues(run.ModelName, run.FunctionName).Inc()
}

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the collected metrics to a Prometheus push gateway.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job, runID string) error {
	return push.New(gatewayURL, job).
		Gatherer(m.registry).
		Grouping("run", runID).
		PushContext(ctx)
}

// ============================================================================
// forkmap Metrics - Prometheus Instrumentation
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Collect and expose per-Pool Prometheus metrics.
//
// Metric Categories:
//
//   1. Counters - cumulative, monotonically increasing:
//      - forkmap_tasks_sent_total: Total tasks handed to a worker
//      - forkmap_tasks_completed_total{kind}: Total results, labeled by
//        outcome kind (ok/timeout/worker_error)
//      - forkmap_worker_replacements_total: Total workers replaced after
//        a timeout
//
//   2. Histogram:
//      - forkmap_task_latency_seconds: Time from send to result, across
//        all outcome kinds
//
//   3. Gauges:
//      - forkmap_in_flight_tasks: Current in-flight table size
//      - forkmap_pool_size: Configured worker count
//
// Unlike the single process-wide metrics.Collector a long-running server
// registers once against the global Prometheus registry, a forkmap.Pool
// is a value an application may construct many times (one per map, one
// per test). Collector therefore owns a private *prometheus.Registry
// instead of calling prometheus.MustRegister against the package-global
// default, so that creating a second Pool never panics on duplicate
// metric registration.
//
// ============================================================================

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector collects Prometheus metrics for one Pool instance.
type Collector struct {
	registry *prometheus.Registry

	tasksSent          prometheus.Counter
	tasksCompleted     *prometheus.CounterVec
	workerReplacements prometheus.Counter
	taskLatency        prometheus.Histogram
	inFlight           prometheus.Gauge
	poolSize           prometheus.Gauge
}

// NewCollector creates a new metrics collector backed by its own
// registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		tasksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forkmap_tasks_sent_total",
			Help: "Total number of tasks handed to a worker",
		}),
		tasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forkmap_tasks_completed_total",
			Help: "Total number of task results received, by outcome kind",
		}, []string{"kind"}),
		workerReplacements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forkmap_worker_replacements_total",
			Help: "Total number of workers replaced after a timeout",
		}),
		taskLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "forkmap_task_latency_seconds",
			Help:    "Latency from task send to result receipt, in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forkmap_in_flight_tasks",
			Help: "Current number of in-flight tasks",
		}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forkmap_pool_size",
			Help: "Configured number of worker goroutines",
		}),
	}

	registry.MustRegister(
		c.tasksSent,
		c.tasksCompleted,
		c.workerReplacements,
		c.taskLatency,
		c.inFlight,
		c.poolSize,
	)

	return c
}

// Registry returns the private Prometheus registry backing this
// collector, for mounting under an HTTP handler (promhttp.HandlerFor).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordSend records one task being handed to a worker.
func (c *Collector) RecordSend() {
	c.tasksSent.Inc()
}

// RecordResult records one result, labeled by outcome kind, with its
// send-to-receipt latency.
func (c *Collector) RecordResult(kind string, latencySeconds float64) {
	c.tasksCompleted.WithLabelValues(kind).Inc()
	c.taskLatency.Observe(latencySeconds)
}

// RecordReplacement records one worker being replaced after a timeout.
func (c *Collector) RecordReplacement() {
	c.workerReplacements.Inc()
}

// SetInFlight sets the current in-flight table size.
func (c *Collector) SetInFlight(n int) {
	c.inFlight.Set(float64(n))
}

// SetPoolSize sets the configured worker count.
func (c *Collector) SetPoolSize(n int) {
	c.poolSize.Set(float64(n))
}

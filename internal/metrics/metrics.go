// ============================================================================
// Fractor Metrics - Prometheus exposition
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Function: Collects and exposes the exact Prometheus metric names spec.md
// §6 requires external scrapers to see unchanged:
//
//   fractor_jobs_processed_total, fractor_jobs_succeeded_total,
//   fractor_jobs_failed_total (counters); fractor_latency_seconds and
//   fractor_wait_time_seconds (quantile summaries, each with a matching
//   _sum/_count, which is exactly what a prometheus.Summary already
//   produces); fractor_throughput_jobs_per_second, fractor_queue_depth,
//   fractor_queue_depth_avg, fractor_queue_depth_max,
//   fractor_enqueue_rate_total, fractor_dequeue_rate_total,
//   fractor_workers_total, fractor_workers_active,
//   fractor_worker_utilization, fractor_memory_bytes (gauges).
//
// Collector shape: one struct field per metric, one Record/Set method per
// event, a StartServer(addr) that mounts promhttp.Handler. Each Collector
// owns a private prometheus.Registry rather than registering into the
// global default registry, so more than one Collector can exist in a single
// process (tests construct several) without a duplicate-registration panic.
//
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// quantileObjectives matches the three quantiles spec.md §6 names for both
// fractor_latency_seconds and fractor_wait_time_seconds.
var quantileObjectives = map[float64]float64{
	0.5:  0.05,
	0.95: 0.01,
	0.99: 0.001,
}

// Collector holds every metric spec.md §6 requires and the private registry
// it is registered against.
type Collector struct {
	registry *prometheus.Registry

	jobsProcessed prometheus.Counter
	jobsSucceeded prometheus.Counter
	jobsFailed    prometheus.Counter

	latency  prometheus.Summary
	waitTime prometheus.Summary

	throughput        prometheus.Gauge
	queueDepth        prometheus.Gauge
	queueDepthAvg     prometheus.Gauge
	queueDepthMax     prometheus.Gauge
	enqueueRateTotal  prometheus.Gauge
	dequeueRateTotal  prometheus.Gauge
	workersTotal      prometheus.Gauge
	workersActive     prometheus.Gauge
	workerUtilization prometheus.Gauge
	memoryBytes       prometheus.Gauge
}

// NewCollector builds a Collector and registers all of its metrics against a
// fresh, private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		jobsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fractor_jobs_processed_total",
			Help: "Total number of work items processed (succeeded + failed).",
		}),
		jobsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fractor_jobs_succeeded_total",
			Help: "Total number of work items completed successfully.",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fractor_jobs_failed_total",
			Help: "Total number of work items that ended in a classified error.",
		}),
		latency: prometheus.NewSummary(prometheus.SummaryOpts{
			Name:       "fractor_latency_seconds",
			Help:       "End-to-end processing latency per work item.",
			Objectives: quantileObjectives,
		}),
		waitTime: prometheus.NewSummary(prometheus.SummaryOpts{
			Name:       "fractor_wait_time_seconds",
			Help:       "Time a work item spent queued before dispatch.",
			Objectives: quantileObjectives,
		}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractor_throughput_jobs_per_second",
			Help: "Results recorded per second since the supervisor started.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractor_queue_depth",
			Help: "Current number of queued work items.",
		}),
		queueDepthAvg: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractor_queue_depth_avg",
			Help: "Average sampled queue depth.",
		}),
		queueDepthMax: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractor_queue_depth_max",
			Help: "Maximum sampled queue depth.",
		}),
		enqueueRateTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractor_enqueue_rate_total",
			Help: "Running total of enqueue events.",
		}),
		dequeueRateTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractor_dequeue_rate_total",
			Help: "Running total of dequeue (dispatch) events.",
		}),
		workersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractor_workers_total",
			Help: "Total number of alive workers across all pools.",
		}),
		workersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractor_workers_active",
			Help: "Number of workers currently processing a work item.",
		}),
		workerUtilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractor_worker_utilization",
			Help: "workers_active / workers_total, in [0, 1].",
		}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractor_memory_bytes",
			Help: "Process-reported memory usage in bytes.",
		}),
	}

	c.registry.MustRegister(
		c.jobsProcessed, c.jobsSucceeded, c.jobsFailed,
		c.latency, c.waitTime,
		c.throughput, c.queueDepth, c.queueDepthAvg, c.queueDepthMax,
		c.enqueueRateTotal, c.dequeueRateTotal,
		c.workersTotal, c.workersActive, c.workerUtilization, c.memoryBytes,
	)
	return c
}

// RecordCompleted records one successful work item's latency.
func (c *Collector) RecordCompleted(latencySeconds float64) {
	c.jobsProcessed.Inc()
	c.jobsSucceeded.Inc()
	c.latency.Observe(latencySeconds)
}

// RecordFailed records one failed work item's latency.
func (c *Collector) RecordFailed(latencySeconds float64) {
	c.jobsProcessed.Inc()
	c.jobsFailed.Inc()
	c.latency.Observe(latencySeconds)
}

// RecordWaitTime observes one item's queue wait time.
func (c *Collector) RecordWaitTime(waitSeconds float64) {
	c.waitTime.Observe(waitSeconds)
}

// SetThroughput sets the current jobs/second gauge.
func (c *Collector) SetThroughput(v float64) { c.throughput.Set(v) }

// SetQueueDepth sets the instantaneous, average, and maximum sampled queue
// depth gauges in one call, mirroring perfmon.PerformanceMonitor's
// QueueDepthStats grouping.
func (c *Collector) SetQueueDepth(current int, avg float64, max int) {
	c.queueDepth.Set(float64(current))
	c.queueDepthAvg.Set(avg)
	c.queueDepthMax.Set(float64(max))
}

// SetEnqueueDequeueTotals sets the running enqueue/dequeue rate gauges.
func (c *Collector) SetEnqueueDequeueTotals(enqueued, dequeued int64) {
	c.enqueueRateTotal.Set(float64(enqueued))
	c.dequeueRateTotal.Set(float64(dequeued))
}

// SetWorkerStats sets the worker-count gauges and derives utilization.
func (c *Collector) SetWorkerStats(total, active int) {
	c.workersTotal.Set(float64(total))
	c.workersActive.Set(float64(active))
	if total > 0 {
		c.workerUtilization.Set(float64(active) / float64(total))
	} else {
		c.workerUtilization.Set(0)
	}
}

// SetMemoryBytes sets the process memory gauge.
func (c *Collector) SetMemoryBytes(v float64) { c.memoryBytes.Set(v) }

// Handler returns an http.Handler serving this Collector's metrics in
// Prometheus text exposition format, for mounting under /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer mounts Handler at /metrics and blocks serving HTTP on addr
// (e.g. ":9090").
func (c *Collector) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return http.ListenAndServe(addr, mux)
}

// Addr is a small helper for callers that only have a port.
func Addr(port int) string {
	return fmt.Sprintf(":%d", port)
}

// Package metrics provides boot metrics collection.
// It wraps Prometheus collectors to record boot runs, per-service startup
// outcomes and latency, the detected boot mode and the companion
// configuration result.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector provides boot metrics collection. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	bootRuns            *prometheus.CounterVec
	bootDuration        prometheus.Histogram
	bootCoreOnly        prometheus.Gauge
	serviceOutcomes     *prometheus.CounterVec
	serviceStartLatency *prometheus.HistogramVec
	companionResults    *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpInFlight        prometheus.Gauge
	uptime              prometheus.GaugeFunc

	startTime time.Time
}

// NewCollector creates a new boot metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "extension_server"
	}

	c := &Collector{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	c.bootRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "boot",
			Name:      "runs_total",
			Help:      "Total number of boot runs by result",
		},
		[]string{"result"},
	)

	c.bootDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "boot",
			Name:      "duration_seconds",
			Help:      "Time taken by a complete boot run",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	c.bootCoreOnly = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "boot",
			Name:      "core_only",
			Help:      "Whether the last boot ran in core-only mode (1) or normal mode (0)",
		},
	)

	c.serviceOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "outcomes_total",
			Help:      "Startup outcomes per extension service",
		},
		[]string{"service", "outcome"},
	)

	c.serviceStartLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "start_duration_seconds",
			Help:      "Time taken to start an extension service",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"service", "outcome"},
	)

	c.companionResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "companion",
			Name:      "results_total",
			Help:      "Results of the post-boot companion allow-list step",
		},
		[]string{"result"},
	)

	c.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Status API requests by method, route and status code",
		},
		[]string{"method", "path", "status"},
	)

	c.httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Status API requests currently being served",
		},
	)

	c.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since the collector was created",
		},
		func() float64 { return time.Since(c.startTime).Seconds() },
	)

	c.registry.MustRegister(
		c.bootRuns,
		c.bootDuration,
		c.bootCoreOnly,
		c.serviceOutcomes,
		c.serviceStartLatency,
		c.companionResults,
		c.httpRequests,
		c.httpInFlight,
		c.uptime,
	)

	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler exposing the collected metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordBootRun records the result and duration of a boot run.
func (c *Collector) RecordBootRun(duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.bootRuns.WithLabelValues(resultLabel(err)).Inc()
	c.bootDuration.Observe(duration.Seconds())
}

// RecordBootMode records whether the boot ran in core-only mode.
func (c *Collector) RecordBootMode(coreOnly bool) {
	if c == nil {
		return
	}
	if coreOnly {
		c.bootCoreOnly.Set(1)
		return
	}
	c.bootCoreOnly.Set(0)
}

// RecordServiceOutcome records one service's startup outcome.
func (c *Collector) RecordServiceOutcome(service, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.serviceOutcomes.WithLabelValues(service, outcome).Inc()
	c.serviceStartLatency.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

// RecordCompanion records the companion configuration result.
func (c *Collector) RecordCompanion(result string) {
	if c == nil {
		return
	}
	c.companionResults.WithLabelValues(result).Inc()
}

// IncrementInFlight marks the start of a status API request.
func (c *Collector) IncrementInFlight() {
	if c == nil {
		return
	}
	c.httpInFlight.Inc()
}

// DecrementInFlight marks the end of a status API request.
func (c *Collector) DecrementInFlight() {
	if c == nil {
		return
	}
	c.httpInFlight.Dec()
}

// RecordHTTPRequest records one served status API request.
func (c *Collector) RecordHTTPRequest(method, path, status string) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, path, status).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

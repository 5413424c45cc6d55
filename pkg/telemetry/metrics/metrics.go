// Package metrics exposes the gateway's Prometheus collectors. All
// metrics are registered against an injected registry so tests and
// embedders control the metric namespace.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config tunes the collector.
type Config struct {
	// Namespace is the metric name prefix.
	Namespace string `yaml:"namespace"`

	// Subsystem is the second metric name segment.
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are the latency histogram buckets in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// Collector owns every gateway metric.
type Collector struct {
	registry *prometheus.Registry

	providerRequests *prometheus.CounterVec
	providerErrors   *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec

	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheEntries prometheus.Gauge
	cacheBytes   prometheus.Gauge

	costTotal *prometheus.CounterVec
}

// NewCollector creates a collector and registers its metrics. A nil
// registry gets a fresh one.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "polygate"
	}
	if len(cfg.DurationBuckets) == 0 {
		// LLM calls routinely run 100ms to 30s.
		cfg.DurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}
	}

	c := &Collector{
		registry: registry,
		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_requests_total",
				Help:      "Total requests dispatched to each provider",
			},
			[]string{"provider", "model", "kind"},
		),
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Total provider errors by classified kind",
			},
			[]string{"provider", "error_kind"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_latency_seconds",
				Help:      "Provider call latency in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"provider", "model"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_hits_total",
				Help:      "Response cache hits by model",
			},
			[]string{"model"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_misses_total",
				Help:      "Response cache misses by model",
			},
			[]string{"model"},
		),
		cacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_entries",
				Help:      "Entries currently held by the response cache",
			},
		),
		cacheBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_bytes",
				Help:      "Estimated bytes held by the response cache",
			},
		),
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_usd_total",
				Help:      "Accumulated cost in USD by provider and model",
			},
			[]string{"provider", "model"},
		),
	}

	registry.MustRegister(
		c.providerRequests,
		c.providerErrors,
		c.providerLatency,
		c.cacheHits,
		c.cacheMisses,
		c.cacheEntries,
		c.cacheBytes,
		c.costTotal,
	)
	return c
}

// RecordRequest records one provider call.
func (c *Collector) RecordRequest(provider, model, kind string, duration time.Duration) {
	c.providerRequests.WithLabelValues(provider, model, kind).Inc()
	c.providerLatency.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordError records one classified provider failure.
func (c *Collector) RecordError(provider, errorKind string) {
	c.providerErrors.WithLabelValues(provider, errorKind).Inc()
}

// RecordCacheHit records a response cache hit.
func (c *Collector) RecordCacheHit(model string) {
	c.cacheHits.WithLabelValues(model).Inc()
}

// RecordCacheMiss records a response cache miss.
func (c *Collector) RecordCacheMiss(model string) {
	c.cacheMisses.WithLabelValues(model).Inc()
}

// SetCacheSize updates the cache occupancy gauges.
func (c *Collector) SetCacheSize(entries int, bytes int64) {
	c.cacheEntries.Set(float64(entries))
	c.cacheBytes.Set(float64(bytes))
}

// RecordCost accumulates a charge in USD.
func (c *Collector) RecordCost(provider, model string, usd float64) {
	if usd < 0 {
		return
	}
	c.costTotal.WithLabelValues(provider, model).Add(usd)
}

// Registry returns the backing registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

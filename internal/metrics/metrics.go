// Package metrics is Cortex's Prometheus metrics surface, exposed over
// the optional metrics HTTP server. Scoped to what a local mapping
// daemon actually needs to observe: service RPC traffic, map cache
// effectiveness, and how often Browser Fallback had to run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// Collector centralizes Cortex's runtime metrics.
type Collector struct {
	rpcTotal    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheBytes  prometheus.Gauge

	mapsSealed       *prometheus.CounterVec
	browserFallbacks prometheus.Counter

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

// New builds a Collector registered against the default Prometheus
// registry, namespaced under namespace (e.g. "cortex").
func New(namespace string, logger *zap.Logger) *Collector {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewWithRegistry is New with an explicit registerer, for tests that
// need an isolated registry.
func NewWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Collector {
	c := &Collector{logger: logger}

	c.rpcTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "rpc_total",
		Help:      "Total local-service RPCs handled, by method and outcome.",
	}, []string{"method", "outcome"})

	c.rpcDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "rpc_duration_seconds",
		Help:      "Local-service RPC handling latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	c.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mapcache",
		Name:      "hits_total",
		Help:      "Map cache hits (fresh Map served without remapping).",
	})

	c.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mapcache",
		Name:      "misses_total",
		Help:      "Map cache misses (remapping was required).",
	})

	c.cacheBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "mapcache",
		Name:      "used_bytes",
		Help:      "Estimated bytes currently held by the map cache.",
	})

	c.mapsSealed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mapper",
		Name:      "maps_sealed_total",
		Help:      "Maps sealed by the Mapper, by completeness (complete vs partial).",
	}, []string{"completeness"})

	c.browserFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mapper",
		Name:      "browser_fallbacks_total",
		Help:      "Times Browser Fallback rendering was invoked for a candidate URL.",
	})

	for _, collector := range []prometheus.Collector{
		c.rpcTotal, c.rpcDuration, c.cacheHits, c.cacheMisses, c.cacheBytes,
		c.mapsSealed, c.browserFallbacks,
	} {
		if err := registerer.Register(collector); err != nil {
			if logger != nil {
				logger.Debug("metric already registered", zap.Error(err))
			}
		}
	}

	handler := promhttp.Handler()
	c.httpHandler = fasthttpadaptor.NewFastHTTPHandler(handler)
	return c
}

// RecordRPC records one service RPC's outcome and latency.
func (c *Collector) RecordRPC(method, outcome string, duration time.Duration) {
	c.rpcTotal.WithLabelValues(method, outcome).Inc()
	c.rpcDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordCacheHit records a fresh map cache hit.
func (c *Collector) RecordCacheHit() { c.cacheHits.Inc() }

// RecordCacheMiss records a map cache miss.
func (c *Collector) RecordCacheMiss() { c.cacheMisses.Inc() }

// SetCacheBytes reports the cache's current estimated byte usage.
func (c *Collector) SetCacheBytes(n int64) { c.cacheBytes.Set(float64(n)) }

// RecordMapSealed records one Mapper run completing, partial or not.
func (c *Collector) RecordMapSealed(partial bool) {
	completeness := "complete"
	if partial {
		completeness = "partial"
	}
	c.mapsSealed.WithLabelValues(completeness).Inc()
}

// RecordBrowserFallback records one Browser Fallback invocation.
func (c *Collector) RecordBrowserFallback() { c.browserFallbacks.Inc() }

// ServeHTTP implements metricsserver.MetricsHandler.
func (c *Collector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	c.httpHandler(ctx)
}

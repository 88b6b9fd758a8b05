// Package obsmetrics is an optional Prometheus metrics sink for the
// registry and agent. It is never required for correctness: every
// method is safe to call on a nil *Metrics, so callers that don't wire
// a sink pay no cost and need no nil checks of their own.
package obsmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and gauges exposed when
// cmd/agentcore serve-metrics is running.
type Metrics struct {
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	breakerTrips  *prometheus.CounterVec
	stepsTotal    prometheus.Counter
	cacheSize     prometheus.Gauge
}

// New registers and returns a Metrics bound to reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_tool_cache_hits_total",
			Help: "Number of GetOrLoad calls served from the warm tool cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_tool_cache_misses_total",
			Help: "Number of GetOrLoad calls that triggered a cold tool load.",
		}),
		breakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_breaker_trips_total",
			Help: "Number of times a tool's circuit breaker opened.",
		}, []string{"tool"}),
		stepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_agent_steps_total",
			Help: "Number of agent steps executed across all runs.",
		}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentcore_tool_cache_size",
			Help: "Current number of loaded tools in the dynamic cache.",
		}),
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses, m.breakerTrips, m.stepsTotal, m.cacheSize)
	return m
}

// CacheHit records a warm-cache GetOrLoad.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss records a cold-load GetOrLoad.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// BreakerTrip records a breaker opening for tool.
func (m *Metrics) BreakerTrip(tool string) {
	if m == nil {
		return
	}
	m.breakerTrips.WithLabelValues(tool).Inc()
}

// Step records one agent step.
func (m *Metrics) Step() {
	if m == nil {
		return
	}
	m.stepsTotal.Inc()
}

// SetCacheSize reports the current number of loaded tools.
func (m *Metrics) SetCacheSize(n int) {
	if m == nil {
		return
	}
	m.cacheSize.Set(float64(n))
}

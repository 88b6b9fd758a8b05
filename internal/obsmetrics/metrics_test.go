package obsmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsRecordsCacheHitsAndMisses(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CacheMiss()
	m.CacheHit()
	m.CacheHit()

	if got := counterValue(t, m.cacheMisses); got != 1 {
		t.Fatalf("cacheMisses = %v, want 1", got)
	}
	if got := counterValue(t, m.cacheHits); got != 2 {
		t.Fatalf("cacheHits = %v, want 2", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.CacheHit()
	m.CacheMiss()
	m.BreakerTrip("calculator")
	m.Step()
	m.SetCacheSize(3)
}

func TestMetricsSetCacheSize(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetCacheSize(7)

	var mm dto.Metric
	if err := m.cacheSize.Write(&mm); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := mm.GetGauge().GetValue(); got != 7 {
		t.Fatalf("cacheSize = %v, want 7", got)
	}
}

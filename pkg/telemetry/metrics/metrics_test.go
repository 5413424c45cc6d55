package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	got := map[string]string{}
	for _, pair := range metric.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for name, value := range labels {
		if got[name] != value {
			return false
		}
	}
	return true
}

func TestCollectorRecordsRequestsAndErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(Config{Namespace: "test"}, registry)

	collector.RecordRequest("openai", "gpt-4o", "chat", 120*time.Millisecond)
	collector.RecordRequest("openai", "gpt-4o", "chat", 80*time.Millisecond)
	collector.RecordError("openai", "rate_limit")

	if got := counterValue(t, registry, "test_provider_requests_total",
		map[string]string{"provider": "openai", "model": "gpt-4o", "kind": "chat"}); got != 2 {
		t.Errorf("requests counter = %v, want 2", got)
	}
	if got := counterValue(t, registry, "test_provider_errors_total",
		map[string]string{"provider": "openai", "error_kind": "rate_limit"}); got != 1 {
		t.Errorf("errors counter = %v, want 1", got)
	}
}

func TestCollectorAccumulatesCost(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(Config{Namespace: "test"}, registry)

	collector.RecordCost("openai", "gpt-4o", 0.0105)
	collector.RecordCost("openai", "gpt-4o", 0.0105)
	collector.RecordCost("openai", "gpt-4o", -1) // refused

	got := counterValue(t, registry, "test_cost_usd_total",
		map[string]string{"provider": "openai", "model": "gpt-4o"})
	if got < 0.0209 || got > 0.0211 {
		t.Errorf("cost counter = %v, want ~0.021", got)
	}
}

func TestCollectorSeparateRegistries(t *testing.T) {
	first := prometheus.NewRegistry()
	second := prometheus.NewRegistry()

	// Registering the same metric names against separate registries
	// must not panic.
	NewCollector(Config{}, first)
	NewCollector(Config{}, second)
}

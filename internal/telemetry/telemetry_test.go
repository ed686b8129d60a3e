package telemetry

import "testing"

func TestNewMetricsWithoutPushgatewayIsNoOpPublish(t *testing.T) {
	m := NewMetrics("", "")
	m.ObserveSearch("blue", 42, 1.5)
	m.ObserveRound(3)
	m.ObserveRSS(128.0)
	// Publish must be safe to call even with no configured push-gateway.
	m.Publish()
}

func TestObserveSearchIsPerColor(t *testing.T) {
	m := NewMetrics("", "")
	m.ObserveSearch("blue", 10, 0.1)
	m.ObserveSearch("red", 20, 0.2)

	blue, err := m.nodesExplored.GetMetricWithLabelValues("blue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	red, err := m.nodesExplored.GetMetricWithLabelValues("red")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blue == red {
		t.Error("expected distinct gauge instances per color label")
	}
}

// Package telemetry publishes Prometheus gauges for a solve run: nodes
// explored and search wall time per agent color, round count, and RSS as
// last observed by the memory governor.
package telemetry

import (
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the gauges for one solve run and an optional push-gateway
// client. An empty pushgatewayURL at construction disables Publish entirely.
type Metrics struct {
	registry *prometheus.Registry
	pusher   *push.Pusher

	nodesExplored *prometheus.GaugeVec
	searchSeconds *prometheus.GaugeVec
	roundCount    prometheus.Gauge
	rssMB         prometheus.Gauge
}

// NewMetrics registers the run's gauges against a fresh registry (never
// the global default, so repeated solves in the same process never
// double-register) and wires a push-gateway client when pushgatewayURL is
// non-empty. runID becomes the pusher's grouping key, so concurrent solves
// pushing to the same gateway land on distinct series instead of
// overwriting one another.
func NewMetrics(pushgatewayURL, runID string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		nodesExplored: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "masokoban_nodes_explored",
			Help: "Nodes explored by the search kernel, by agent color.",
		}, []string{"color"}),
		searchSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "masokoban_search_seconds",
			Help: "Wall-clock seconds spent in the agent's last search call, by agent color.",
		}, []string{"color"}),
		roundCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "masokoban_round_count",
			Help: "Manager rounds completed so far in the current run.",
		}),
		rssMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "masokoban_rss_megabytes",
			Help: "Process RSS in megabytes, as last observed by the memory governor.",
		}),
	}

	registry.MustRegister(m.nodesExplored, m.searchSeconds, m.roundCount, m.rssMB)

	if pushgatewayURL != "" {
		pusher := push.New(pushgatewayURL, "masokoban").Gatherer(registry)
		if runID != "" {
			pusher = pusher.Grouping("run_id", runID)
		}
		m.pusher = pusher
	}
	return m
}

// ObserveSearch records the outcome of one Agent search call.
func (m *Metrics) ObserveSearch(color string, nodesExplored int, seconds float64) {
	m.nodesExplored.WithLabelValues(color).Set(float64(nodesExplored))
	m.searchSeconds.WithLabelValues(color).Set(seconds)
}

// ObserveRound records the Manager's completed round count.
func (m *Metrics) ObserveRound(round int) {
	m.roundCount.Set(float64(round))
}

// ObserveRSS records the memory governor's last usage reading.
func (m *Metrics) ObserveRSS(mb float64) {
	m.rssMB.Set(mb)
}

// Publish pushes the current snapshot to the configured push-gateway, if
// any. Telemetry failures are logged, never fatal to a solve.
func (m *Metrics) Publish() {
	if m.pusher == nil {
		return
	}
	if err := m.pusher.Push(); err != nil {
		log.Warn("telemetry push failed", "error", err)
	}
}

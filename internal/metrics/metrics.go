// Package metrics provides swap engine telemetry. It wraps Prometheus
// collectors behind a private registry so parallel tests can each build
// their own collector without double-registration panics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates swap engine metrics.
type Collector struct {
	registry *prometheus.Registry

	stateTransitions *prometheus.CounterVec
	swapsTerminal    *prometheus.CounterVec
	retryAttempts    *prometheus.CounterVec
	retryExhausted   *prometheus.CounterVec
	gasSources       *prometheus.CounterVec
	confirmProgress  *prometheus.GaugeVec
}

// NewCollector creates a collector under the given namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "swapengine"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "state_transitions_total",
			Help:      "Swap state machine transitions",
		},
		[]string{"from", "to"},
	)

	c.swapsTerminal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "terminal_total",
			Help:      "Swaps reaching a terminal state",
		},
		[]string{"state"},
	)

	c.retryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Retry attempts per transport operation",
		},
		[]string{"operation"},
	)

	c.retryExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "exhausted_total",
			Help:      "Retry sequences that exhausted their budget",
		},
		[]string{"operation"},
	)

	c.gasSources = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gas",
			Name:      "estimate_source_total",
			Help:      "Gas limit resolutions by source (override, live, static, table, floor)",
		},
		[]string{"source"},
	)

	c.confirmProgress = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "confirmations",
			Name:      "progress_percent",
			Help:      "Confirmation progress per swap leg",
		},
		[]string{"swap_id", "leg"},
	)

	c.registry.MustRegister(
		c.stateTransitions,
		c.swapsTerminal,
		c.retryAttempts,
		c.retryExhausted,
		c.gasSources,
		c.confirmProgress,
	)
	return c
}

// RecordStateTransition counts a state machine transition.
func (c *Collector) RecordStateTransition(from, to string) {
	c.stateTransitions.WithLabelValues(from, to).Inc()
}

// RecordSwapTerminal counts a swap reaching a terminal state.
func (c *Collector) RecordSwapTerminal(state string) {
	c.swapsTerminal.WithLabelValues(state).Inc()
}

// RecordRetryAttempt counts one re-attempt of a transport operation.
func (c *Collector) RecordRetryAttempt(operation string) {
	c.retryAttempts.WithLabelValues(operation).Inc()
}

// RecordRetryExhausted counts a retry sequence that gave up.
func (c *Collector) RecordRetryExhausted(operation string) {
	c.retryExhausted.WithLabelValues(operation).Inc()
}

// RecordGasSource counts which resolution step produced a gas limit.
func (c *Collector) RecordGasSource(source string) {
	c.gasSources.WithLabelValues(source).Inc()
}

// SetConfirmationProgress records leg progress for a swap.
func (c *Collector) SetConfirmationProgress(swapID, leg string, progress float64) {
	c.confirmProgress.WithLabelValues(swapID, leg).Set(progress)
}

// DeleteSwap drops per-swap gauge series once an orchestrator is released.
func (c *Collector) DeleteSwap(swapID string) {
	c.confirmProgress.DeletePartialMatch(prometheus.Labels{"swap_id": swapID})
}

// Handler exposes the collector over HTTP.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

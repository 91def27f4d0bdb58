// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker state gauge values.
const (
	BreakerClosed   = 0
	BreakerOpen     = 1
	BreakerHalfOpen = 2
)

var (
	RegistryInstances = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relaygate_registry_instances",
		Help: "Registered instances by status, as of the last sweep",
	}, []string{"status"})

	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaygate_probes_total",
		Help: "Health probes issued by outcome",
	}, []string{"service", "result"})

	ReapedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relaygate_reaped_instances_total",
		Help: "Stale instances removed by the reaper",
	})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaygate_store_errors_total",
		Help: "Registry store errors swallowed by background loops",
	}, []string{"operation"})

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relaygate_breaker_state",
		Help: "Circuit state per destination (0 closed, 1 open, 2 half-open)",
	}, []string{"destination"})

	ForwardTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaygate_forward_total",
		Help: "Forward attempts by destination and outcome",
	}, []string{"destination", "outcome"})

	ForwardDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relaygate_forward_duration_seconds",
		Help:    "Latency of forwarded calls that reached an instance",
		Buckets: prometheus.DefBuckets,
	}, []string{"destination"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relaygate_rate_limited_total",
		Help: "Requests rejected by the ingress rate limiter",
	})
)

// Forward outcomes.
const (
	OutcomeRelayed        = "relayed"
	OutcomeCircuitOpen    = "circuit_open"
	OutcomeNoInstance     = "no_instance"
	OutcomeTransportError = "transport_error"
	OutcomeTooLarge       = "too_large"
)

// ObserveBreakerState records a destination's breaker state label.
func ObserveBreakerState(destination, state string) {
	v := BreakerClosed
	switch state {
	case "open":
		v = BreakerOpen
	case "half-open":
		v = BreakerHalfOpen
	}
	BreakerState.WithLabelValues(destination).Set(float64(v))
}

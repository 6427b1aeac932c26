package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const businessSubsystem = "subscription"

var transitions = &Metric{
	ID:          "subTransition",
	Name:        "transitions_total",
	Description: "Lifecycle operations partitioned by action and result.",
	Type:        "counter_vec",
	Args:        []string{"action", "result"},
}

var callbacks = &Metric{
	ID:          "subCallback",
	Name:        "callbacks_total",
	Description: "Payment callbacks partitioned by outcome.",
	Type:        "counter_vec",
	Args:        []string{"outcome"},
}

var sweepDur = &Metric{
	ID:          "subSweepDur",
	Name:        "sweep_dur_ms",
	Description: "Expiry sweep latency in milliseconds.",
	Type:        "histogram",
}

var sweepExpired = &Metric{
	ID:          "subSweepExpired",
	Name:        "sweep_expired_total",
	Description: "Subscriptions moved to expired by sweeps.",
	Type:        "counter",
}

var entitlementErrs = &Metric{
	ID:          "subEntitlementErr",
	Name:        "entitlement_errors_total",
	Description: "Failed entitlement propagations.",
	Type:        "counter",
}

var businessMetrics = []*Metric{transitions, callbacks, sweepDur, sweepExpired, entitlementErrs}

func init() {
	for _, def := range businessMetrics {
		c, err := register(NewMetric(def, businessSubsystem))
		if err != nil {
			panic(err)
		}
		def.MetricCollector = c
	}
}

// ObserveTransition counts one lifecycle operation, result is "ok" or an error class.
func ObserveTransition(action, result string) {
	transitions.MetricCollector.(*prometheus.CounterVec).WithLabelValues(action, result).Inc()
}

func ObserveCallback(outcome string) {
	callbacks.MetricCollector.(*prometheus.CounterVec).WithLabelValues(outcome).Inc()
}

func ObserveSweep(start time.Time, expired int) {
	sweepDur.MetricCollector.(prometheus.Histogram).Observe(MillisecondsSince(start))
	sweepExpired.MetricCollector.(prometheus.Counter).Add(float64(expired))
}

func ObserveEntitlementError() {
	entitlementErrs.MetricCollector.(prometheus.Counter).Inc()
}

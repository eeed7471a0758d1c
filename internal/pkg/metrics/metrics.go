package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "autosell"

// Metrics holds the worker's Prometheus collectors.
type Metrics struct {
	CyclesTotal         prometheus.Counter
	CyclesSkipped       prometheus.Counter
	CycleDuration       prometheus.Histogram
	ResyncsTotal        *prometheus.CounterVec
	AutosoldTotal       *prometheus.CounterVec
	SwapFailures        prometheus.Counter
	CommitFailures      prometheus.Counter
	PriceLookupFailures prometheus.Counter
	MonitoredMortgages  *prometheus.GaugeVec
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Reconciliation cycles that ran",
		}),
		CyclesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_skipped_total",
			Help:      "Ticks skipped because the previous cycle was still running",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a reconciliation cycle",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		ResyncsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resyncs_total",
			Help:      "Pending set resyncs by result",
		}, []string{"result"}),
		AutosoldTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosold_total",
			Help:      "Mortgages liquidated, by trigger",
		}, []string{"trigger"}),
		SwapFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_failures_total",
			Help:      "Collateral swaps that failed",
		}),
		CommitFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_failures_total",
			Help:      "Swaps whose AUTOSOLD write could not be persisted",
		}),
		PriceLookupFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_lookup_failures_total",
			Help:      "Token price lookups that failed",
		}),
		MonitoredMortgages: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitored_mortgages",
			Help:      "Mortgages in the pending set, by status",
		}, []string{"status"}),
	}
}

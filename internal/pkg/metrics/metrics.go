// Package metrics holds the Prometheus collectors of the console.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wallet"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// AssetQueries counts per-asset resolutions by asset kind and outcome.
	AssetQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "asset_queries_total",
		Help:      "Per-asset balance resolutions by asset kind and outcome.",
	}, []string{"asset", "outcome"})

	// AggregationDuration observes full balance aggregations.
	AggregationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "aggregation_duration_seconds",
		Help:      "Duration of a full balance aggregation.",
		Buckets:   prometheus.DefBuckets,
	})

	// Transfers counts submissions by asset kind and outcome.
	Transfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfers_total",
		Help:      "Transfer submissions by asset kind and outcome.",
	}, []string{"kind", "outcome"})

	// StaleResultsDiscarded counts results dropped because a newer account event superseded them.
	StaleResultsDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_results_discarded_total",
		Help:      "Asynchronous results discarded because the session moved on.",
	})

	// AccountChanges counts account-change notifications.
	AccountChanges = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_changes_total",
		Help:      "Account-change notifications received from the wallet.",
	})

	registerOnce sync.Once
)

// AssetKind returns the asset label value.
func AssetKind(native bool) string {
	if native {
		return "native"
	}
	return "token"
}

// MustRegisterMetrics registers every collector with reg once.
func MustRegisterMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(AssetQueries, AggregationDuration, Transfers, StaleResultsDiscarded, AccountChanges)
	})
}

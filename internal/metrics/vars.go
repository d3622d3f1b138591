package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "amm_arb_searches_total",
		Help: "Optimal-amount searches by outcome",
	}, []string{"outcome"})

	SearchIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "amm_arb_search_iterations",
		Help:    "Iterations used by a single search",
		Buckets: prometheus.LinearBuckets(0, 5, 11),
	})

	BestProfit = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "amm_arb_best_profit_units",
		Help: "Best profit of the last successful search, in source token base units",
	})

	LegsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "amm_arb_legs_submitted_total",
		Help: "Swap legs handed to the executor",
	}, []string{"leg", "result"})

	SnapshotCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "amm_arb_snapshot_cache_hits_total",
		Help: "Pool snapshots served from cache",
	})
)

func init() {
	prometheus.MustRegister(
		Searches,
		SearchIterations,
		BestProfit,
		LegsSubmitted,
		SnapshotCacheHits,
	)
}

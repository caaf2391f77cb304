package chainstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirror the teacher's blockchain.go instrumentation
// (reorgCounter, reorgDepthHistogram, a head-height gauge), generalised to
// this core's canonical-chain put/delete/reorg pipeline.
var (
	headHeightGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chainstore_head_height",
		Help: "Block number of the current canonical headHeader.",
	})

	headTdGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chainstore_head_total_difficulty",
		Help: "Total difficulty of the current canonical headHeader, as a float approximation.",
	})

	putCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainstore_puts_total",
		Help: "Completed putBlockOrHeader calls, by outcome.",
	}, []string{"outcome"})

	reorgCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainstore_reorgs_total",
		Help: "Canonical-chain reorganisations performed.",
	})

	reorgDepthHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chainstore_reorg_depth",
		Help:    "Number of blocks walked back by rebuildCanonical during a reorg.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	deleteCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainstore_deletes_total",
		Help: "delBlock calls, by outcome.",
	}, []string{"outcome"})
)

func observeHead(number uint64, td float64) {
	headHeightGauge.Set(float64(number))
	headTdGauge.Set(td)
}

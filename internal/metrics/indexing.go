package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing pipeline metrics.
var (
	IndexingProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchdex",
			Name:      "indexing_processed_total",
			Help:      "Total indexing attempts by outcome",
		},
		[]string{"document_type", "outcome"}, // indexed / skipped / failed
	)

	IndexingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matchdex",
			Name:      "indexing_duration_seconds",
			Help:      "End-to-end per-document indexing duration",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"document_type"},
	)

	IndexingQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "matchdex",
			Name:      "indexing_queue_depth",
			Help:      "Documents currently queued for indexing",
		},
	)

	MatchQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchdex",
			Name:      "match_queries_total",
			Help:      "Match queries by direction and readiness",
		},
		[]string{"direction", "embedding_ready"},
	)
)

var indexingMetricsRegistered bool

// RegisterIndexingMetrics registers the pipeline metrics. Must be called once from main.
func RegisterIndexingMetrics() {
	if indexingMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexingProcessedTotal)
	prometheus.MustRegister(IndexingDuration)
	prometheus.MustRegister(IndexingQueueDepth)
	prometheus.MustRegister(MatchQueriesTotal)
	indexingMetricsRegistered = true
}

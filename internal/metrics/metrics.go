package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pair search metrics
	PairSearchAnchorsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pair_search_anchors_processed_total",
		Help: "Number of anchor features processed by the pair search",
	})

	PairSearchPairsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pair_search_pairs_found_total",
		Help: "Number of candidate pairs passing both thresholds",
	})

	PairSearchDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "pair_search_duration_seconds",
		Help: "End-to-end duration of pair search runs",
	})

	PairSearchSimilarity = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pair_search_similarity",
		Help:    "Distribution of cosine similarities for kept pairs",
		Buckets: []float64{-1, -0.5, 0, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 1.0},
	})

	// Motif search metrics
	MotifSearchTuplesFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motif_search_tuples_found_total",
		Help: "Number of four-node motifs emitted",
	})

	MotifSearchDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "motif_search_duration_seconds",
		Help: "End-to-end duration of motif search runs",
	})

	MotifSearchNeighborSetSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "motif_search_neighbor_set_size",
		Help:    "Sizes of precomputed positive/negative neighbor sets",
		Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
	})

	// Archive I/O metrics
	ArchiveLoadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "archive_load_bytes",
		Help:    "Compressed size of loaded tensor archives",
		Buckets: prometheus.ExponentialBuckets(1<<20, 4, 8),
	})

	ArchiveLoadDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "archive_load_duration_seconds",
		Help: "Duration of tensor archive loads (read + decompress + decode)",
	})

	ArchiveSaveDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "archive_save_duration_seconds",
		Help: "Duration of tensor archive saves (encode + compress + write)",
	})

	// Description lookup metrics
	DescriptionLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "description_lookups_total",
		Help: "Feature description lookups by outcome",
	}, []string{"outcome"})

	DescriptionLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "description_lookup_duration_seconds",
		Help:    "Duration of single feature description HTTP lookups",
		Buckets: prometheus.DefBuckets,
	})

	DescriptionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "description_cache_hits_total",
		Help: "Description lookups served from the in-process cache",
	})

	// Clustering metrics
	ClusterMerges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cluster_merges_total",
		Help: "Number of agglomerative merge steps performed",
	})

	ClusterDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "cluster_duration_seconds",
		Help: "Duration of clustering runs",
	})

	// Co-occurrence accumulation metrics
	CooccurrencePromptsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cooccurrence_prompts_processed_total",
		Help: "Number of prompt activation records folded into the accumulator",
	})
)

func RecordPairSearch(anchors, pairs int, duration time.Duration) {
	PairSearchAnchorsProcessed.Add(float64(anchors))
	PairSearchPairsFound.Add(float64(pairs))
	PairSearchDuration.Observe(duration.Seconds())
}

func RecordPairSimilarity(sim float64) {
	PairSearchSimilarity.Observe(sim)
}

func RecordMotifSearch(tuples int, duration time.Duration) {
	MotifSearchTuplesFound.Add(float64(tuples))
	MotifSearchDuration.Observe(duration.Seconds())
}

func RecordNeighborSetSize(size int) {
	MotifSearchNeighborSetSize.Observe(float64(size))
}

func RecordArchiveLoad(bytes int64, duration time.Duration) {
	ArchiveLoadBytes.Observe(float64(bytes))
	ArchiveLoadDuration.Observe(duration.Seconds())
}

func RecordArchiveSave(duration time.Duration) {
	ArchiveSaveDuration.Observe(duration.Seconds())
}

func RecordDescriptionLookup(outcome string, duration time.Duration) {
	DescriptionLookups.WithLabelValues(outcome).Inc()
	DescriptionLookupDuration.Observe(duration.Seconds())
}

func RecordDescriptionCacheHit() {
	DescriptionCacheHits.Inc()
}

func RecordClustering(merges int, duration time.Duration) {
	ClusterMerges.Add(float64(merges))
	ClusterDuration.Observe(duration.Seconds())
}

func RecordCooccurrencePrompts(n int) {
	CooccurrencePromptsProcessed.Add(float64(n))
}

// Package metrics defines Prometheus collectors shared across linehist
// components.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors for linelog metrics.
var (
	LineLogEditsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linehist_linelog_edits_total",
		Help: "Cumulative number of edit operations recorded to line logs.",
	})
	LineLogAnnotatedLinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linehist_linelog_annotated_lines_total",
		Help: "Cumulative number of lines attributed by annotate calls.",
	})
)

// Collectors for linkrev cache metrics.
var (
	LinkRevAppendsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linehist_linkrev_appends_total",
		Help: "Cumulative number of link-revision appends.",
	})
	LinkRevHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linehist_linkrev_hits_total",
		Help: "Cumulative number of link-revision lookups returning entries.",
	})
	LinkRevMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linehist_linkrev_misses_total",
		Help: "Cumulative number of link-revision lookups returning no entries.",
	})
	LinkRevRebuildsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linehist_linkrev_rebuilds_total",
		Help: "Cumulative number of destructive schema rebuilds of link-revision caches.",
	})
)

// Collectors for manifest metrics.
var (
	ManifestFinalizeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linehist_manifest_finalize_total",
		Help: "Cumulative number of successful manifest finalize calls.",
	})
	ManifestConflictTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linehist_manifest_conflict_total",
		Help: "Cumulative number of finalize calls failing with structural conflicts.",
	})
	StoreCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linehist_store_cache_hits_total",
		Help: "Cumulative number of content store reads served from cache.",
	})
	StoreCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linehist_store_cache_misses_total",
		Help: "Cumulative number of content store reads passed to the backing store.",
	})
)

// LineHistCollectors returns the collectors of all linehist components.
func LineHistCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		LineLogEditsTotal,
		LineLogAnnotatedLinesTotal,
		LinkRevAppendsTotal,
		LinkRevHitsTotal,
		LinkRevMissesTotal,
		LinkRevRebuildsTotal,
		ManifestFinalizeTotal,
		ManifestConflictTotal,
		StoreCacheHitsTotal,
		StoreCacheMissesTotal,
	}
}

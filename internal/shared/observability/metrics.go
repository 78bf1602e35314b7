package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	RootsComputedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathref_roots_computed_total",
		Help: "Total number of resolution contexts computed.",
	})

	StaleRootsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathref_stale_roots_total",
		Help: "Declared roots that no longer resolve to a directory.",
	}, []string{"kind"})

	RootResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathref_root_resolution_seconds",
		Help:    "Time spent computing a resolution context.",
		Buckets: prometheus.DefBuckets,
	})

	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pathref_parsing_seconds",
		Help:    "Time spent parsing a source file for literals.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	LiteralsExtractedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathref_literals_extracted_total",
		Help: "String literals extracted from source files.",
	}, []string{"language"})

	ReferencesUnresolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathref_references_unresolved_total",
		Help: "Path segment references that did not resolve against any context.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathref_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ToolbarTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathref_toolbar_transitions_total",
		Help: "Contextual toolbar transitions by resulting top state.",
	}, []string{"state"})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathref_api_requests_total",
		Help: "Query API requests by operation and status code.",
	}, []string{"operation", "code"})
)

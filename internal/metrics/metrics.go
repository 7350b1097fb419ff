package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage counters and histograms.

var (
	// Batch processor
	BatchRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "processor",
		Name:      "batch_runs_total",
		Help:      "Total fill batch runs",
	})

	BatchEventsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "processor",
		Name:      "events_loaded_total",
		Help:      "Total unprocessed events loaded into batches",
	})

	FillsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "processor",
		Name:      "fills_created_total",
		Help:      "Total fills built, valued, and persisted",
	})

	EventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "processor",
		Name:      "events_skipped_total",
		Help:      "Total events skipped by per-item failure policy",
	}, []string{"reason"})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tracker",
		Subsystem: "processor",
		Name:      "batch_duration_seconds",
		Help:      "Fill batch processing duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// Valuation
	FillsMeasured = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "valuator",
		Name:      "fills_measured_total",
		Help:      "Total fills through valuation, by pricing outcome",
	}, []string{"outcome"})

	// Index projection
	FillsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "projector",
		Name:      "fills_indexed_total",
		Help:      "Total fill documents written to the search index",
	})

	IndexJobFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "projector",
		Name:      "job_failures_total",
		Help:      "Total index-fill job failures, by class",
	}, []string{"class"})

	IndexJobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tracker",
		Subsystem: "projector",
		Name:      "job_duration_seconds",
		Help:      "Index-fill job processing duration",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
)

// Skip reasons for EventsSkipped.
const (
	SkipMissingBlock        = "missing_block"
	SkipUnsupportedAsset    = "unsupported_asset"
	SkipUnsupportedProtocol = "unsupported_protocol"
	SkipValuation           = "valuation"
)

// Valuation outcomes for FillsMeasured.
const (
	OutcomePriced       = "priced"
	OutcomeImmeasurable = "immeasurable"
)

// Index job failure classes.
const (
	FailureTerminal  = "terminal"
	FailureTransient = "transient"
)

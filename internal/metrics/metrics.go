// Package metrics defines the Prometheus instrumentation shared across
// retrieval, agents and the review pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Retrieval metrics
	RetrievalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retrieval_requests_total",
		Help: "Total retrieval requests by method and outcome",
	}, []string{"method", "status"})

	RetrievalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "retrieval_duration_seconds",
		Help:    "Retrieval duration by method",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"method"})

	SearchDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "search_degraded_total",
		Help: "Searches completed with a degraded retrieval path",
	}, []string{"reason"})

	// Agent metrics
	AgentRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_requests_total",
		Help: "Total agent invocations by agent, stage and outcome",
	}, []string{"agent", "stage", "status"})

	AgentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_execution_duration_seconds",
		Help:    "Agent execution duration",
		Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 20.0, 30.0, 60.0},
	}, []string{"agent", "stage"})

	// Pipeline metrics
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "Completed pipeline runs by terminal stage",
	}, []string{"stage"})

	PipelineIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_iterations",
		Help:    "Review iterations per pipeline run",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	ActiveAnalyses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_analyses",
		Help: "Number of document analyses currently in flight",
	})

	// Report metrics
	ReportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_generated_total",
		Help: "Total reports generated by analysis type and outcome",
	}, []string{"analysis_type", "status"})

	ReportGenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_generation_duration_seconds",
		Help:    "End-to-end report generation duration",
		Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 20.0, 60.0, 120.0},
	})

	// Cache metrics
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Report cache hits",
	}, []string{"cache_type"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Report cache misses",
	}, []string{"cache_type"})

	// Error metrics
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Total errors by component and category",
	}, []string{"component", "category"})
)

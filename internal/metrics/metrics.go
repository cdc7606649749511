// Package metrics exposes Prometheus instrumentation for workflow executions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/job-rematcher/internal/types"
)

// Stage outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder receives workflow measurements
type Recorder interface {
	ObserveStage(stage types.ExecutionStatus, outcome string, duration time.Duration)
	RecordExecution(status types.ExecutionStatus)
	RecordBranchFailure(source types.Source)
	ObserveConsolidated(count int)
}

// PrometheusRecorder records workflow metrics on a private registry
type PrometheusRecorder struct {
	registry *prometheus.Registry

	stageDurationSeconds *prometheus.HistogramVec
	executionsTotal      *prometheus.CounterVec
	branchFailuresTotal  *prometheus.CounterVec
	consolidatedMatches  prometheus.Histogram
}

// NewPrometheusRecorder creates a recorder with Go and process collectors registered
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		stageDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rematch_stage_duration_seconds",
			Help:    "Duration of workflow stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "outcome"}),
		executionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rematch_executions_total",
			Help: "Workflow executions that reached a terminal status.",
		}, []string{"status"}),
		branchFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rematch_retrieval_branch_failures_total",
			Help: "Retrieval branches that degraded to an empty list.",
		}, []string{"source"}),
		consolidatedMatches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rematch_consolidated_matches",
			Help:    "Number of consolidated matches per execution.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
	}

	registry.MustRegister(r.stageDurationSeconds)
	registry.MustRegister(r.executionsTotal)
	registry.MustRegister(r.branchFailuresTotal)
	registry.MustRegister(r.consolidatedMatches)

	return r
}

// Registry returns the Prometheus registry
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveStage records how long one stage took
func (r *PrometheusRecorder) ObserveStage(stage types.ExecutionStatus, outcome string, duration time.Duration) {
	r.stageDurationSeconds.WithLabelValues(string(stage), outcome).Observe(duration.Seconds())
}

// RecordExecution counts an execution reaching a terminal status
func (r *PrometheusRecorder) RecordExecution(status types.ExecutionStatus) {
	r.executionsTotal.WithLabelValues(string(status)).Inc()
}

// RecordBranchFailure counts a degraded retrieval branch
func (r *PrometheusRecorder) RecordBranchFailure(source types.Source) {
	r.branchFailuresTotal.WithLabelValues(string(source)).Inc()
}

// ObserveConsolidated records the size of a consolidated list
func (r *PrometheusRecorder) ObserveConsolidated(count int) {
	r.consolidatedMatches.Observe(float64(count))
}

// Nop discards every measurement
type Nop struct{}

func (Nop) ObserveStage(types.ExecutionStatus, string, time.Duration) {}
func (Nop) RecordExecution(types.ExecutionStatus)                    {}
func (Nop) RecordBranchFailure(types.Source)                         {}
func (Nop) ObserveConsolidated(int)                                  {}

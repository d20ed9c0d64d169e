// Package metrics defines the Prometheus collectors exported by the analyzer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "loganalyzer"

	toolInvocationsTotal = "tool_invocations_total"
	batchDurationSeconds = "batch_duration_seconds"
	parsedRecordsTotal   = "parsed_records_total"
	misnumberedReplies   = "misnumbered_replies_total"
	jobsTotal            = "jobs_total"

	providerLabel = "provider"
	outcomeLabel  = "outcome"
	taskLabel     = "task"
	labelLabel    = "label"
	statusLabel   = "status"
)

var toolInvocationsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      toolInvocationsTotal,
		Help:      "number of external tool invocations partitioned by provider and outcome",
	},
	[]string{providerLabel, outcomeLabel},
)

var batchDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      batchDurationSeconds,
		Help:      "wall-clock time of one batched tool call",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 180, 300},
	},
	[]string{taskLabel},
)

var parsedRecordsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      parsedRecordsTotal,
		Help:      "number of per-item records produced by reply parsers, by task and label",
	},
	[]string{taskLabel, labelLabel},
)

var misnumberedRepliesMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      misnumberedReplies,
		Help:      "number of tool replies whose item numbers disagreed with line positions",
	},
	[]string{taskLabel},
)

var jobsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      jobsTotal,
		Help:      "number of web analysis job status transitions by status",
	},
	[]string{statusLabel},
)

// IncToolInvocation counts one tool call.
func IncToolInvocation(provider, outcome string) {
	toolInvocationsMetric.With(prometheus.Labels{providerLabel: provider, outcomeLabel: outcome}).Inc()
}

// ObserveBatch records the duration of one batch call in seconds.
func ObserveBatch(task string, seconds float64) {
	batchDurationMetric.With(prometheus.Labels{taskLabel: task}).Observe(seconds)
}

// IncParsedRecord counts one parsed reply record.
func IncParsedRecord(task, label string) {
	parsedRecordsMetric.With(prometheus.Labels{taskLabel: task, labelLabel: label}).Inc()
}

// IncMisnumberedReply counts one reply whose numbering drifted.
func IncMisnumberedReply(task string) {
	misnumberedRepliesMetric.With(prometheus.Labels{taskLabel: task}).Inc()
}

// IncJob counts one job entering status.
func IncJob(status string) {
	jobsMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(toolInvocationsMetric)
	prometheus.MustRegister(batchDurationMetric)
	prometheus.MustRegister(parsedRecordsMetric)
	prometheus.MustRegister(misnumberedRepliesMetric)
	prometheus.MustRegister(jobsMetric)
}

// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	AIQueryExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiquery_executions_total",
			Help: "Template executions by outcome",
		},
		[]string{"template", "outcome"},
	)

	AIQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiquery_duration_seconds",
			Help:    "Template execution time in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 15},
		},
		[]string{"template"},
	)

	AIQueryFanOutReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiquery_fanout_reads_total",
			Help: "Store reads issued by concurrent fan-out",
		},
		[]string{"template"},
	)

	AIQueryRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiquery_rate_limited_total",
			Help: "Cross-org calls rejected by the per-user limiter",
		},
		[]string{"template"},
	)
)

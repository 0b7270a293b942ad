package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "donorhub"

var (
	jobQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "queue_size",
			Help:      "Number of jobs in the store by status",
		},
		[]string{"status"},
	)

	jobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Total job executions by outcome",
		},
		[]string{"type", "outcome"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "handler_duration_seconds",
			Help:      "Time spent in job handlers",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type"},
	)

	jobsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "claimed_total",
			Help:      "Total jobs claimed from the store before execution",
		},
	)
)

func recordJobFetched() {
	jobsFetched.Inc()
}

func recordJobProcessed(jobType, outcome string) {
	jobsProcessed.WithLabelValues(jobType, outcome).Inc()
}

func recordJobDuration(jobType string, duration time.Duration) {
	jobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// RecordQueueStats updates queue size metrics.
func RecordQueueStats(stats *QueueStats) {
	jobQueueSize.WithLabelValues("pending").Set(float64(stats.Pending))
	jobQueueSize.WithLabelValues("processing").Set(float64(stats.Processing))
	jobQueueSize.WithLabelValues("completed").Set(float64(stats.Completed))
	jobQueueSize.WithLabelValues("failed").Set(float64(stats.Failed))
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		jobsSubmitted,
		jobsProcessed,
		jobRetries,
		providerLatencyMs,
		pollBatchSize,
	)
}

var (
	jobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_submitted_total",
			Help: "Count of generation jobs accepted per kind.",
		},
		[]string{"kind"},
	)

	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Count of execution attempts per terminal outcome.",
		},
		[]string{"outcome"},
	)

	jobRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "job_retries_total",
			Help: "Count of transient failures that were rescheduled.",
		},
	)

	providerLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_latency_ms",
			Help:    "Generation provider call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"success"},
	)

	pollBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poll_batch_size",
			Help:    "Number of eligible jobs fetched per poll cycle.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)
)

// JobSubmitted records an accepted generation job.
func JobSubmitted(kind string) {
	jobsSubmitted.WithLabelValues(kind).Inc()
}

// JobProcessed records the outcome of one execution attempt. Outcome is
// one of "success", "failed", or "retried".
func JobProcessed(outcome string) {
	jobsProcessed.WithLabelValues(outcome).Inc()
}

// JobRetried records a transient failure that was put back in the queue.
func JobRetried() {
	jobRetries.Inc()
}

// ObserveProviderCall records one generation provider round trip.
func ObserveProviderCall(latency time.Duration, success bool) {
	providerLatencyMs.WithLabelValues(strconv.FormatBool(success)).
		Observe(float64(latency.Milliseconds()))
}

// ObservePollBatch records the size of one poll cycle's batch.
func ObservePollBatch(n int) {
	pollBatchSize.Observe(float64(n))
}

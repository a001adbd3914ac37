// Package metrics provides Prometheus instrumentation for the extraction and
// aggregation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trade_journal"

// Recorder holds the pipeline metrics. A nil *Recorder is a valid no-op.
type Recorder struct {
	retries      *prometheus.CounterVec
	legOutcomes  *prometheus.CounterVec
	extractions  *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

// New creates a Recorder and registers its collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "backoffs_total",
			Help:      "Rate-limited attempts that were retried after a backoff",
		}, []string{"operation"}),
		legOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "leg_outcomes_total",
			Help:      "Snapshot legs by the source that finally served them",
		}, []string{"leg", "source"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "results_total",
			Help:      "Screenshot analyses by variant and outcome",
		}, []string{"variant", "outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Duration of outbound provider calls in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	reg.MustRegister(r.retries, r.legOutcomes, r.extractions, r.callDuration)
	return r
}

// RecordRetry counts one backoff of operation.
func (r *Recorder) RecordRetry(operation string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(operation).Inc()
}

// RecordLeg counts which source ("primary", "cache", "secondary", "default") served leg.
func (r *Recorder) RecordLeg(leg, source string) {
	if r == nil {
		return
	}
	r.legOutcomes.WithLabelValues(leg, source).Inc()
}

// RecordExtraction counts one screenshot analysis outcome.
func (r *Recorder) RecordExtraction(variant, outcome string) {
	if r == nil {
		return
	}
	r.extractions.WithLabelValues(variant, outcome).Inc()
}

// ObserveCall records how long a provider call took.
func (r *Recorder) ObserveCall(provider string, d time.Duration) {
	if r == nil {
		return
	}
	r.callDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RetryObserver adapts RecordRetry to retry.Observer's signature.
func (r *Recorder) RetryObserver(operation string) func(int, time.Duration, error) {
	return func(int, time.Duration, error) { r.RecordRetry(operation) }
}

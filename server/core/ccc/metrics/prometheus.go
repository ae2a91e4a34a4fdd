package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framegrab_extractions_total",
		Help: "Total number of extractions, by operation, protocol and outcome",
	}, []string{"operation", "protocol", "status"})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framegrab_extraction_duration_seconds",
		Help:    "Wall time of ffmpeg runs",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"operation", "protocol"})

	InFlightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "framegrab_in_flight_requests",
		Help: "Number of requests currently being processed",
	})

	RejectedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framegrab_rejected_requests_total",
		Help: "Requests turned away because the concurrency limit was reached",
	})

	RetentionRemovals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framegrab_retention_removals_total",
		Help: "Clip files deleted to stay under the retention cap",
	})

	FallbackRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framegrab_fallback_runs_total",
		Help: "Clip extractions retried with the re-encode fallback",
	})
)

// Recorder receives extraction outcomes. The extraction service depends on
// this interface so tests can run without the global registry.
type Recorder interface {
	ObserveExtraction(operation, protocol, status string, seconds float64)
	ObserveFallback()
	ObserveRetentionRemoval()
}

type prometheusRecorder struct{}

// Prometheus records into the package level collectors
var Prometheus Recorder = prometheusRecorder{}

func (prometheusRecorder) ObserveExtraction(operation, protocol, status string, seconds float64) {
	ExtractionsTotal.WithLabelValues(operation, protocol, status).Inc()
	if seconds > 0 {
		ExtractionDuration.WithLabelValues(operation, protocol).Observe(seconds)
	}
}

func (prometheusRecorder) ObserveFallback() {
	FallbackRuns.Inc()
}

func (prometheusRecorder) ObserveRetentionRemoval() {
	RetentionRemovals.Inc()
}

type nopRecorder struct{}

// NopRecorder discards every observation.
var NopRecorder Recorder = nopRecorder{}

func (nopRecorder) ObserveExtraction(string, string, string, float64) {}
func (nopRecorder) ObserveFallback()                                 {}
func (nopRecorder) ObserveRetentionRemoval()                         {}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	before := testutil.ToFloat64(ExtractionsTotal.WithLabelValues("clip", "rtsp", "success"))

	Prometheus.ObserveExtraction("clip", "rtsp", "success", 1.2)
	Prometheus.ObserveExtraction("clip", "rtsp", "success", 0)

	after := testutil.ToFloat64(ExtractionsTotal.WithLabelValues("clip", "rtsp", "success"))
	if after-before != 2 {
		t.Errorf("Expected counter to grow by 2, got %v", after-before)
	}

	removals := testutil.ToFloat64(RetentionRemovals)
	Prometheus.ObserveRetentionRemoval()
	if testutil.ToFloat64(RetentionRemovals)-removals != 1 {
		t.Error("Expected retention removal counter to grow by 1")
	}

	fallbacks := testutil.ToFloat64(FallbackRuns)
	Prometheus.ObserveFallback()
	if testutil.ToFloat64(FallbackRuns)-fallbacks != 1 {
		t.Error("Expected fallback counter to grow by 1")
	}
}

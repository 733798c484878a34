package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"acsgeo/internal/metrics"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("job", ""); err == nil {
		t.Fatal("expected error for empty gateway URL")
	}

	b, err := NewBackend("", "http://localhost:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.jobName != "acsgeo" {
		t.Fatalf("default jobName = %q, want acsgeo", b.jobName)
	}
}

func TestIncCounter_RoutesByName(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("test", "http://localhost:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter(metrics.MetricStepTotal, 1, metrics.Labels{"step": "tabular", "status": "success"})
	b.IncCounter(metrics.MetricRequestsTotal, 2, metrics.Labels{"endpoint": "acs", "status": "success"})
	b.IncCounter(metrics.MetricRowsTotal, 57, metrics.Labels{"table": "B25024"})
	b.IncCounter(metrics.MetricFeaturesTotal, 3, metrics.Labels{"kind": "kept"})
	b.IncCounter("unknown_metric", 99, nil)

	if got := testutil.ToFloat64(b.stepCounter.WithLabelValues("tabular", "success")); got != 1 {
		t.Errorf("step counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(b.requestCounter.WithLabelValues("acs", "success")); got != 2 {
		t.Errorf("request counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(b.rowCounter.WithLabelValues("B25024")); got != 57 {
		t.Errorf("row counter = %v, want 57", got)
	}
	if got := testutil.ToFloat64(b.featureCounter.WithLabelValues("kept")); got != 3 {
		t.Errorf("feature counter = %v, want 3", got)
	}
}

func TestObserveHistogram_OnlyStepDuration(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("test", "http://localhost:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.ObserveHistogram(metrics.MetricStepDuration, 1.5, metrics.Labels{"step": "geometry", "status": "success"})
	b.ObserveHistogram("something_else", 9.0, nil)

	count := testutil.CollectAndCount(b.stepDuration)
	if count != 1 {
		t.Fatalf("summary series = %d, want 1", count)
	}
}

// TestFlush_PushesToGateway points the backend at a fake Pushgateway and
// verifies a push happens on Flush.
func TestFlush_PushesToGateway(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("census_job", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.MetricRowsTotal, 5, metrics.Labels{"table": "B25003"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if gotPath != "/metrics/job/census_job" {
		t.Fatalf("push path = %q, want /metrics/job/census_job", gotPath)
	}
}

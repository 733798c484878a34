// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the extract run.
//
// The package is intentionally minimal and opinionated:
//
//   - It exposes a narrow interface (Backend) focused on counters and
//     timing data.
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no
//     real backend is configured.
//   - Concrete metric systems (Prometheus Pushgateway, Datadog) live in
//     subpackages; the rest of the codebase depends only on this
//     interface.
//
// The primary use case is instrumentation of the fetch stages (variable
// resolution, tabular fetch, geometry fetch) and of the per-feature
// keep/drop decisions, without coupling the pipeline to a specific
// metrics system.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// Metric names shared between the recording helpers and the backends.
const (
	MetricStepTotal     = "acsgeo_step_total"
	MetricStepDuration  = "acsgeo_step_duration_seconds"
	MetricRequestsTotal = "acsgeo_requests_total"
	MetricRowsTotal     = "acsgeo_rows_total"
	MetricFeaturesTotal = "acsgeo_features_total"
)

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency plus success/failure for one pipeline
// step ("variables", "tabular", "geometry", "emit").
func RecordStep(step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"step":   step,
		"status": status,
	}

	backend.IncCounter(MetricStepTotal, 1, lbls)
	backend.ObserveHistogram(MetricStepDuration, d.Seconds(), lbls)
}

// RecordRequest counts one upstream API request against the named
// endpoint ("acs", "acs_meta", "tiger") with its outcome.
func RecordRequest(endpoint string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	backend.IncCounter(MetricRequestsTotal, 1, Labels{
		"endpoint": endpoint,
		"status":   status,
	})
}

// RecordRows increments the tabular row counter for the given ACS table.
func RecordRows(table string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(MetricRowsTotal, float64(delta), Labels{
		"table": table,
	})
}

// RecordFeatures counts geometry features by disposition.
//
// Typical kinds:
//   - "kept"
//   - "dropped_geometry"   (non-polygonal or degenerate shapes)
//   - "dropped_identifier" (key components failed validation)
//   - "dropped_duplicate"  (GEOID repeated across pages)
func RecordFeatures(kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(MetricFeaturesTotal, float64(delta), Labels{
		"kind": kind,
	})
}

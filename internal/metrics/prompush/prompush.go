// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the pipeline labels (step, status, endpoint, table, kind)
//     onto Prometheus labels.
//   - Pushing collected metrics to a Prometheus Pushgateway instance
//     instead of exposing an HTTP scrape endpoint; the extract is a
//     short-lived batch job, not a server.
//
// All Prometheus-specific dependencies live here so the rest of the
// project stays decoupled and can swap to alternative backends
// (e.g. Datadog) without changes to the pipeline.
package prompush

import (
	"fmt"

	"acsgeo/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // acsgeo_step_total
	stepDuration *prometheus.SummaryVec // acsgeo_step_duration_seconds

	requestCounter *prometheus.CounterVec // acsgeo_requests_total
	rowCounter     *prometheus.CounterVec // acsgeo_rows_total
	featureCounter *prometheus.CounterVec // acsgeo_features_total
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName is the Pushgateway "job" grouping key; gatewayURL is the base
// URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "acsgeo"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.MetricStepTotal,
			Help: "Total pipeline step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.MetricStepDuration,
			Help:       "Duration of pipeline steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.MetricRequestsTotal,
			Help: "Upstream Census API requests, partitioned by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.MetricRowsTotal,
			Help: "Merged block-group rows produced per ACS table.",
		},
		[]string{"table"},
	)
	featureCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.MetricFeaturesTotal,
			Help: "Geometry features by disposition (kept, dropped_geometry, dropped_identifier, dropped_duplicate).",
		},
		[]string{"kind"},
	)

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, requestCounter, rowCounter, featureCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:     gatewayURL,
		jobName:        jobName,
		reg:            reg,
		stepCounter:    stepCounter,
		stepDuration:   stepDuration,
		requestCounter: requestCounter,
		rowCounter:     rowCounter,
		featureCounter: featureCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.MetricStepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.MetricRequestsTotal:
		if b.requestCounter == nil {
			return
		}
		b.requestCounter.WithLabelValues(labels["endpoint"], labels["status"]).Add(delta)

	case metrics.MetricRowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["table"]).Add(delta)

	case metrics.MetricFeaturesTotal:
		if b.featureCounter == nil {
			return
		}
		b.featureCounter.WithLabelValues(labels["kind"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.MetricStepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}

// Package observability provides Prometheus metrics for the fusion and
// aggregation pipeline.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics the service exports.
type Metrics struct {
	// Fusion pipeline
	FusionsTotal   *prometheus.CounterVec
	FusionDuration prometheus.Histogram

	// Classifier
	ClassificationsTotal   *prometheus.CounterVec
	ClassificationDuration prometheus.Histogram

	// Best-effort reporter attribution
	ActivityRecordsTotal *prometheus.CounterVec

	// Aggregation queries
	AggregationsTotal   *prometheus.CounterVec
	AggregationDuration prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.initMetrics()
	if err := m.registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.FusionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquasentinel_fusions_total",
			Help: "Total number of fusion attempts partitioned by outcome.",
		},
		[]string{"status"},
	)
	m.FusionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aquasentinel_fusion_duration_seconds",
			Help:    "Time taken for one complete fuse-classify-store operation.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
	m.ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquasentinel_classifications_total",
			Help: "Total number of classifier invocations partitioned by outcome.",
		},
		[]string{"status"},
	)
	m.ClassificationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aquasentinel_classification_duration_seconds",
			Help:    "Time taken for one model prediction including pool queueing.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
	)
	m.ActivityRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquasentinel_activity_records_total",
			Help: "Reporter activity recording attempts partitioned by kind and outcome.",
		},
		[]string{"kind", "status"},
	)
	m.AggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquasentinel_aggregations_total",
			Help: "Outbreak aggregation queries partitioned by endpoint and outcome.",
		},
		[]string{"endpoint", "status"},
	)
	m.AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aquasentinel_aggregation_duration_seconds",
			Help:    "Time taken for one outbreak aggregation query.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
	)
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.FusionsTotal.Describe(ch)
	m.FusionDuration.Describe(ch)
	m.ClassificationsTotal.Describe(ch)
	m.ClassificationDuration.Describe(ch)
	m.ActivityRecordsTotal.Describe(ch)
	m.AggregationsTotal.Describe(ch)
	m.AggregationDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.FusionsTotal.Collect(ch)
	m.FusionDuration.Collect(ch)
	m.ClassificationsTotal.Collect(ch)
	m.ClassificationDuration.Collect(ch)
	m.ActivityRecordsTotal.Collect(ch)
	m.AggregationsTotal.Collect(ch)
	m.AggregationDuration.Collect(ch)
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

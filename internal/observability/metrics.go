package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for wagerboard.
type Metrics struct {
	// --- Rollover state machine ---
	RolloverChecks    prometheus.Counter
	RolloverPerformed prometheus.Counter
	RolloverSkipped   *prometheus.CounterVec
	RolloverDuration  prometheus.Histogram
	MarkerTimestamp   prometheus.Gauge

	// --- Upstream fetch ---
	FetchAttempts prometheus.Counter
	FetchErrors   *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	FetchRecords  prometheus.Gauge

	// --- Snapshot store ---
	StoreWrites prometheus.Counter
	StoreErrors *prometheus.CounterVec

	// --- Read API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// --- Lifecycle events ---
	EventsPublished *prometheus.CounterVec
	EventsDropped   prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RolloverChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wb_rollover_checks_total",
			Help: "Short-tick rollover checks performed",
		}),

		RolloverPerformed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wb_rollover_performed_total",
			Help: "Weekly rollovers executed",
		}),

		RolloverSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wb_rollover_skipped_total",
			Help: "Checks that did not roll (not_due, in_progress, marker_error)",
		}, []string{"reason"}),

		RolloverDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wb_rollover_duration_seconds",
			Help:    "Time to archive, refetch, and advance the marker",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0},
		}),

		MarkerTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "wb_marker_timestamp_seconds",
			Help: "Last-processed-boundary marker as a Unix timestamp",
		}),

		FetchAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wb_fetch_attempts_total",
			Help: "Upstream stats fetches attempted",
		}),

		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wb_fetch_errors_total",
			Help: "Fetch failures by class (unreachable, remote_rejected, invalid_response)",
		}, []string{"class"}),

		FetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wb_fetch_duration_seconds",
			Help:    "Upstream fetch latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),

		FetchRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "wb_fetch_records",
			Help: "Wager records in the last successful fetch",
		}),

		StoreWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wb_store_writes_total",
			Help: "Record writes to the snapshot store",
		}),

		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wb_store_errors_total",
			Help: "Storage failures by record key",
		}, []string{"key"}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wb_query_requests_total",
			Help: "Read API requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wb_query_duration_seconds",
			Help:    "Read API latency",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),

		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wb_events_published_total",
			Help: "Lifecycle events published to JetStream",
		}, []string{"kind"}),

		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wb_events_dropped_total",
			Help: "Lifecycle events dropped after publish failure",
		}),
	}
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Index metrics
	DocumentsLiveTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "menmosd_documents_live_total",
			Help: "Number of live (non-deleted) documents in the index",
		},
	)

	DocumentsIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "menmosd_documents_indexed_total",
			Help: "Total number of index_blob calls completed",
		},
	)

	DocumentsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "menmosd_documents_deleted_total",
			Help: "Total number of delete_blob calls completed",
		},
	)

	IndexInsertDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "menmosd_index_insert_duration_seconds",
			Help:    "Time taken by index_blob, including metadata diff-purge",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Query metrics
	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "menmosd_query_duration_seconds",
			Help:    "Time taken to evaluate and assemble a query response",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueryHitsTotal = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "menmosd_query_hits_total",
			Help:    "Total matching documents per query, before pagination",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 1000, 10000},
		},
	)

	// Router / storage-node metrics
	StorageNodesRegistered = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "menmosd_storage_nodes_registered",
			Help: "Number of storage nodes known to the router, by freshness",
		},
		[]string{"freshness"}, // "fresh" | "stale"
	)

	RouteBlobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "menmosd_route_blob_duration_seconds",
			Help:    "Time taken to select a storage node for a new blob",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Rebuild / move-request controller metrics
	RebuildQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "menmosd_rebuild_queue_depth",
			Help: "Number of storage nodes awaiting a full re-scan",
		},
	)

	MoveRequestsEmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "menmosd_move_requests_emitted_total",
			Help: "Total number of MoveRequests emitted by get_move_requests",
		},
	)

	RoutingConfigsDirtyTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "menmosd_routing_configs_dirty_total",
			Help: "Number of per-user routing configs currently in the Dirty state",
		},
	)
)

func init() {
	prometheus.MustRegister(
		DocumentsLiveTotal,
		DocumentsIndexedTotal,
		DocumentsDeletedTotal,
		IndexInsertDuration,
		QueryDuration,
		QueryHitsTotal,
		StorageNodesRegistered,
		RouteBlobDuration,
		RebuildQueueDepth,
		MoveRequestsEmittedTotal,
		RoutingConfigsDirtyTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

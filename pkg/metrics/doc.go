// Package metrics defines and registers the Prometheus metrics exposed by
// menmosd: document counts, storage-node freshness, rebuild queue depth,
// and per-operation latency histograms. Metrics are exposed via the
// operational HTTP surface for scraping. DocumentsLiveTotal,
// StorageNodesRegistered and RoutingConfigsDirtyTotal are registered but
// no code in this module sets them, so they always report zero.
package metrics

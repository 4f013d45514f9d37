// Package metrics holds the prometheus collectors exported by topomap.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry owns a private prometheus registry and every topomap collector
type Registry struct {
	registry *prometheus.Registry

	NodesTotal        prometheus.Gauge
	LinksTotal        prometheus.Gauge
	OperationsTotal   *prometheus.CounterVec
	LinkRejections    *prometheus.CounterVec
	PersistFailures   *prometheus.CounterVec
	ProbeDuration     prometheus.Histogram
	ProbesTotal       *prometheus.CounterVec
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// NewRegistry creates a registry with all collectors registered
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initTopologyMetrics()
	r.initMonitorMetrics()
	r.initHTTPMetrics()
	return r
}

// Prometheus returns the underlying registry for promhttp
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

func (r *Registry) initTopologyMetrics() {
	r.NodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "topomap_nodes_total",
			Help: "Number of nodes in the topology",
		},
	)

	r.LinksTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "topomap_links_total",
			Help: "Number of links in the topology",
		},
	)

	r.OperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "topomap_store_operations_total",
			Help: "Topology commands by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	r.LinkRejections = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "topomap_link_rejections_total",
			Help: "Rejected port selections by reason",
		},
		[]string{"reason"},
	)

	r.PersistFailures = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "topomap_persist_failures_total",
			Help: "Changes that could not be written to the database",
		},
		[]string{"kind"},
	)
}

func (r *Registry) initMonitorMetrics() {
	r.ProbeDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "topomap_probe_duration_seconds",
			Help:    "Duration of device reachability probes",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	r.ProbesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "topomap_probes_total",
			Help: "Device reachability probes by resulting status",
		},
		[]string{"status"},
	)
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "topomap_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "topomap_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

// RecordOperation counts a topology command; err == nil counts as "ok"
func (r *Registry) RecordOperation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordRejection counts a rejected port selection
func (r *Registry) RecordRejection(reason string) {
	r.LinkRejections.WithLabelValues(reason).Inc()
}

// SetCounts updates the topology size gauges
func (r *Registry) SetCounts(nodes, links int) {
	r.NodesTotal.Set(float64(nodes))
	r.LinksTotal.Set(float64(links))
}

// RecordProbe records one reachability probe
func (r *Registry) RecordProbe(status string, duration time.Duration) {
	r.ProbesTotal.WithLabelValues(status).Inc()
	r.ProbeDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPersistFailure counts a change that could not be written to storage
func (r *Registry) RecordPersistFailure(kind string) {
	r.PersistFailures.WithLabelValues(kind).Inc()
}

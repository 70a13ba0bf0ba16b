package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	CommandsTotal     *prometheus.CounterVec
	ProtocolErrors    prometheus.Counter
	SnapshotDuration  prometheus.Histogram
	SnapshotLastOK    prometheus.Gauge
}

// NewRegistry creates and registers all application metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvmesh_connections_active",
			Help: "Currently open client connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvmesh_connections_total",
			Help: "Client connections accepted since start.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvmesh_commands_total",
			Help: "Commands processed, by command name.",
		}, []string{"command"}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvmesh_protocol_errors_total",
			Help: "Protocol errors that terminated framing.",
		}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kvmesh_snapshot_duration_seconds",
			Help:    "Time spent writing snapshots.",
			Buckets: prometheus.DefBuckets,
		}),
		SnapshotLastOK: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvmesh_snapshot_last_success_timestamp_seconds",
			Help: "Unix time of the last successful snapshot.",
		}),
	}

	reg.MustRegister(
		r.ConnectionsActive,
		r.ConnectionsTotal,
		r.CommandsTotal,
		r.ProtocolErrors,
		r.SnapshotDuration,
		r.SnapshotLastOK,
	)

	return r
}

// StoreStats reports live store state; it is read on every scrape.
type StoreStats func() (keys, expiries int, expiredTotal int64)

// RegisterStore registers a collector that reads store statistics at
// scrape time.
func (r *Registry) RegisterStore(stats StoreStats) {
	r.reg.MustRegister(&storeCollector{stats: stats})
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

type storeCollector struct {
	stats StoreStats
}

var (
	keysDesc = prometheus.NewDesc(
		"kvmesh_store_keys", "Live keys across all shards.", nil, nil)
	expiriesDesc = prometheus.NewDesc(
		"kvmesh_store_expiries", "Keys carrying an expiry deadline.", nil, nil)
	expiredDesc = prometheus.NewDesc(
		"kvmesh_store_keys_expired_total", "Keys removed by expiry.", nil, nil)
)

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- keysDesc
	ch <- expiriesDesc
	ch <- expiredDesc
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	keys, expiries, expired := c.stats()
	ch <- prometheus.MustNewConstMetric(keysDesc, prometheus.GaugeValue, float64(keys))
	ch <- prometheus.MustNewConstMetric(expiriesDesc, prometheus.GaugeValue, float64(expiries))
	ch <- prometheus.MustNewConstMetric(expiredDesc, prometheus.CounterValue, float64(expired))
}

// Package promexport exposes the server's runtime metrics to
// Prometheus scrapers, complementing the synchronous ExportKindStats
// path with a pull-based endpoint suitable for dashboards and alerts.
package promexport

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ehrlich-b/beamformer-shm/internal/interfaces"
)

var _ interfaces.Observer = (*Collector)(nil)

// Collector owns the Prometheus metric vectors the server updates as it
// processes work items.
type Collector struct {
	registry *prometheus.Registry

	dispatchTotal   prometheus.Counter
	dispatchErrors  prometheus.Counter
	dispatchLatency prometheus.Histogram
	filterCreates   prometheus.Counter
	exportBytes     prometheus.Counter
	uploadBytes     prometheus.Counter
	queueDepth      prometheus.Gauge
}

// NewCollector builds a Collector registered against its own private
// registry, so embedding it in a process never collides with metrics
// another package registers against prometheus.DefaultRegisterer.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		dispatchTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "beamformer_dispatch_total",
			Help: "Total compute dispatch work items processed.",
		}),
		dispatchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "beamformer_dispatch_errors_total",
			Help: "Compute dispatch work items that failed.",
		}),
		dispatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "beamformer_dispatch_latency_seconds",
			Help:    "Compute dispatch latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		filterCreates: factory.NewCounter(prometheus.CounterOpts{
			Name: "beamformer_filter_creates_total",
			Help: "Filter coefficient generation requests processed.",
		}),
		exportBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "beamformer_export_bytes_total",
			Help: "Bytes written across all synchronous export requests.",
		}),
		uploadBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "beamformer_upload_bytes_total",
			Help: "Bytes accepted across all RF upload requests.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "beamformer_queue_depth",
			Help: "Most recently observed work queue depth.",
		}),
	}
}

func (c *Collector) ObserveDispatch(latencyNs uint64, success bool) {
	c.dispatchTotal.Inc()
	if !success {
		c.dispatchErrors.Inc()
	}
	c.dispatchLatency.Observe(float64(latencyNs) / 1e9)
}

func (c *Collector) ObserveFilterCreate(latencyNs uint64, success bool) {
	c.filterCreates.Inc()
}

func (c *Collector) ObserveExport(bytes uint64, latencyNs uint64, success bool) {
	c.exportBytes.Add(float64(bytes))
}

func (c *Collector) ObserveUpload(bytes uint64, latencyNs uint64, success bool) {
	c.uploadBytes.Add(float64(bytes))
}

func (c *Collector) ObserveQueueDepth(depth uint32) {
	c.queueDepth.Set(float64(depth))
}

// Handler returns an http.Handler serving this collector's registry in
// the Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

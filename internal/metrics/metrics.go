// Package metrics records what a sync run did as Prometheus metrics. The
// registry can be exported to a node_exporter textfile at the end of a run.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "threescale_sync"

// Recorder holds the metrics of one process. A nil *Recorder records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	changes         *prometheus.CounterVec
	productDuration *prometheus.HistogramVec
}

// New creates a Recorder backed by its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Admin API requests by HTTP method and status code.",
		}, []string{"method", "code"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_total",
			Help:      "Mutations applied to the control plane by entity and operation.",
		}, []string{"entity", "op"}),
		productDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "product_sync_duration_seconds",
			Help:      "Wall time of one product reconciliation.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"result"}),
	}
	r.registry.MustRegister(r.requests, r.changes, r.productDuration)
	return r
}

// ObserveRequest counts one Admin API round trip. status 0 means transport failure.
func (r *Recorder) ObserveRequest(method string, status int) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// ObserveChange counts one applied mutation.
func (r *Recorder) ObserveChange(entity, op string) {
	if r == nil {
		return
	}
	r.changes.WithLabelValues(entity, op).Inc()
}

// ObserveProduct records the duration of a product sync.
func (r *Recorder) ObserveProduct(d time.Duration, failed bool) {
	if r == nil {
		return
	}
	result := "success"
	if failed {
		result = "failure"
	}
	r.productDuration.WithLabelValues(result).Observe(d.Seconds())
}

// WriteTextfile writes all metrics in the text exposition format to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

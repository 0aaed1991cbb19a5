// control/prometheus_metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus-backed counters and gauges for the event dispatcher and
// fast-path queues, exported alongside MetricsRegistry's generic
// key/value snapshot for callers that want a scrapeable /metrics
// endpoint rather than a programmatic dump.

package control

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics is the library's Prometheus collector set: one
// counter vector for dispatched events by type, and one gauge vector for
// each fast-path queue's current txq_avail credit (spec.md §4.4).
type PrometheusMetrics struct {
	EventsTotal *prometheus.CounterVec
	TxqAvail    *prometheus.GaugeVec
}

// NewPrometheusMetrics builds the collector set and registers it with
// reg. Pass prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer-backed reg for the global one.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tas_events_total",
			Help: "Total events delivered by Context.Poll, by event type.",
		}, []string{"type"}),
		TxqAvail: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tas_txq_avail",
			Help: "Current txq_avail credit per fast-path queue (spec.md sec 4.4).",
		}, []string{"queue"}),
	}
	reg.MustRegister(m.EventsTotal, m.TxqAvail)
	return m
}

// ObserveEvent increments the counter for one dispatched event's type
// name. Callers pass the EventType's String() form so the metric stays
// decoupled from the api package's numeric tag values.
func (m *PrometheusMetrics) ObserveEvent(typeName string) {
	m.EventsTotal.WithLabelValues(typeName).Inc()
}

// SetTxqAvail records queue idx's current txq_avail credit.
func (m *PrometheusMetrics) SetTxqAvail(idx int, avail uint32) {
	m.TxqAvail.WithLabelValues(strconv.Itoa(idx)).Set(float64(avail))
}

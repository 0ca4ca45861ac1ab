// Package metrics holds the Prometheus collectors of the hub.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is owned by the root composition and handed to components.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	openSubscriptions prometheus.Gauge
	realtimeEvents    *prometheus.CounterVec
	reconnects        *prometheus.CounterVec
	uploads           *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		openSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "social_hub",
			Subsystem: "realtime",
			Name:      "open_subscriptions",
			Help:      "Number of tracked realtime channel subscriptions.",
		}),
		realtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social_hub",
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Row-change events delivered to subscription callbacks.",
		}, []string{"table", "kind"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social_hub",
			Subsystem: "realtime",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts of the realtime connection.",
		}, []string{"outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social_hub",
			Subsystem: "media",
			Name:      "uploads_total",
			Help:      "Object storage uploads by bucket and outcome.",
		}, []string{"bucket", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social_hub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled by the hub API.",
		}, []string{"method", "status"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.openSubscriptions,
		m.realtimeEvents,
		m.reconnects,
		m.uploads,
		m.httpRequests,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetOpenSubscriptions(n int) {
	if m == nil {
		return
	}
	m.openSubscriptions.Set(float64(n))
}

func (m *Metrics) RealtimeEvent(table, kind string) {
	if m == nil {
		return
	}
	m.realtimeEvents.WithLabelValues(table, kind).Inc()
}

func (m *Metrics) Reconnect(outcome string) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Upload(bucket string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.uploads.WithLabelValues(bucket, outcome).Inc()
}

func (m *Metrics) HTTPRequest(method, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, status).Inc()
}

// Package metrics exposes Prometheus instruments for the HTTP layer and the
// order service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instruments of the service.
type Metrics struct {
	Requests     *prometheus.CounterVec
	LatencyMS    *prometheus.HistogramVec
	Mutations    *prometheus.CounterVec
	EventsFailed prometheus.Counter

	registry *prometheus.Registry
}

// New creates the instruments on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orderflow",
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Name:      "order_mutations_total",
		Help:      "Order service mutations by operation and result.",
	}, []string{"op", "result"})
	eventsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orderflow",
		Name:      "order_events_failed_total",
		Help:      "Order events that could not be published.",
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		requests, latency, mutations, eventsFailed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		Requests:     requests,
		LatencyMS:    latency,
		Mutations:    mutations,
		EventsFailed: eventsFailed,
		registry:     reg,
	}
}

// ObserveRequest records one HTTP request under its route template.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(d) / float64(time.Millisecond))
}

// RecordMutation counts one service mutation; result is "ok" or an error class.
func (m *Metrics) RecordMutation(op, result string) {
	m.Mutations.WithLabelValues(op, result).Inc()
}

// EventFailed counts an event that could not be published.
func (m *Metrics) EventFailed() {
	m.EventsFailed.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package metrics exposes Prometheus collectors for the hubs, the refresh
// loop and upstream APIs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "livefeed"

type Metrics struct {
	registry *prometheus.Registry

	hubPublished   *prometheus.CounterVec
	hubDeliveries  *prometheus.CounterVec
	hubSinkFailed  *prometheus.CounterVec
	hubSubscribers *prometheus.GaugeVec

	refreshTicks     prometheus.Counter
	refreshPublished prometheus.Counter
	refreshSkipped   prometheus.Counter
	refreshDuration  prometheus.Histogram

	upstreamRequests *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		hubPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "published_total",
			Help:      "Messages published per hub.",
		}, []string{"hub"}),
		hubDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "deliveries_total",
			Help:      "Sink deliveries attempted per hub.",
		}, []string{"hub"}),
		hubSinkFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "sink_failures_total",
			Help:      "Sink deliveries that returned an error.",
		}, []string{"hub"}),
		hubSubscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "Current subscribers per hub.",
		}, []string{"hub"}),
		refreshTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "ticks_total",
			Help:      "Completed refresh ticks.",
		}),
		refreshPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "published_total",
			Help:      "Price updates published by the refresh loop.",
		}),
		refreshSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "skipped_total",
			Help:      "Cache entries that produced no update during a tick.",
		}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "tick_duration_seconds",
			Help:      "Duration of refresh ticks.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Upstream API requests by service and status (0 = transport error).",
		}, []string{"service", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route template and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.hubPublished,
		m.hubDeliveries,
		m.hubSinkFailed,
		m.hubSubscribers,
		m.refreshTicks,
		m.refreshPublished,
		m.refreshSkipped,
		m.refreshDuration,
		m.upstreamRequests,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// broadcast.Observer

func (m *Metrics) Published(hub string, sinks int) {
	m.hubPublished.WithLabelValues(hub).Inc()
	m.hubDeliveries.WithLabelValues(hub).Add(float64(sinks))
}

func (m *Metrics) SinkFailed(hub string) {
	m.hubSinkFailed.WithLabelValues(hub).Inc()
}

func (m *Metrics) Subscribers(hub string, n int) {
	m.hubSubscribers.WithLabelValues(hub).Set(float64(n))
}

// service.RefreshObserver

func (m *Metrics) TickCompleted(entries, published int, elapsed time.Duration) {
	m.refreshTicks.Inc()
	m.refreshPublished.Add(float64(published))
	if skipped := entries - published; skipped > 0 {
		m.refreshSkipped.Add(float64(skipped))
	}
	m.refreshDuration.Observe(elapsed.Seconds())
}

// pyth.StatusObserver

func (m *Metrics) UpstreamStatus(service string, code int) {
	m.upstreamRequests.WithLabelValues(service, strconv.Itoa(code)).Inc()
}

// ObserveRequest records one HTTP request. Stream routes are observed when
// the connection ends.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Package metrics defines the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wishshare"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	sessions          prometheus.Gauge
	subscriptions     prometheus.Gauge
	eventsPublished   *prometheus.CounterVec
	deliveries        prometheus.Counter
	deliveriesDropped prometheus.Counter
	claimConflicts    prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_sessions",
			Help:      "Open realtime sessions.",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_channel_subscriptions",
			Help:      "Session to wishlist channel subscriptions.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_published_total",
			Help:      "Broadcast events published by type.",
		}, []string{"type"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_deliveries_total",
			Help:      "Messages queued to sessions.",
		}),
		deliveriesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_deliveries_dropped_total",
			Help:      "Messages dropped because a session queue was full.",
		}),
		claimConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_claim_conflicts_total",
			Help:      "Claims rejected because the item was already claimed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.sessions,
		m.subscriptions,
		m.eventsPublished,
		m.deliveries,
		m.deliveriesDropped,
		m.claimConflicts,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

func (m *Metrics) Subscribed() {
	if m != nil {
		m.subscriptions.Inc()
	}
}

func (m *Metrics) Unsubscribed(n int) {
	if m != nil {
		m.subscriptions.Sub(float64(n))
	}
}

func (m *Metrics) EventPublished(eventType string) {
	if m != nil {
		m.eventsPublished.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) Delivered() {
	if m != nil {
		m.deliveries.Inc()
	}
}

func (m *Metrics) Dropped() {
	if m != nil {
		m.deliveriesDropped.Inc()
	}
}

func (m *Metrics) ClaimConflict() {
	if m != nil {
		m.claimConflicts.Inc()
	}
}

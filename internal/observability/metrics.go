package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/exchange-web/internal/events"
)

// Metrics holds the Prometheus collectors of the web tier.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	HTTPErrors       *prometheus.CounterVec
	SessionEvents    *prometheus.CounterVec
	GuardDecisions   *prometheus.CounterVec
	ActiveSessions   prometheus.GaugeFunc
	activeSessionsFn func() float64
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exchange_web",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "exchange_web",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exchange_web",
			Name:      "http_errors_total",
			Help:      "Error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exchange_web",
			Name:      "session_events_total",
			Help:      "Session transitions and auth outcomes by event type and resulting phase.",
		}, []string{"event", "phase"}),
		GuardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exchange_web",
			Name:      "guard_decisions_total",
			Help:      "Route guard outcomes.",
		}, []string{"guard", "decision"}),
	}
	m.ActiveSessions = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "exchange_web",
		Name:      "browser_sessions",
		Help:      "Browser sessions held in memory.",
	}, func() float64 {
		if m.activeSessionsFn == nil {
			return 0
		}
		return m.activeSessionsFn()
	})
	return m
}

// TrackSessions reports n() as the in-memory session gauge.
func (m *Metrics) TrackSessions(n func() int) {
	if m == nil {
		return
	}
	m.activeSessionsFn = func() float64 { return float64(n()) }
}

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(route, method, code).Inc()
}

// RecordGuard counts a guard decision.
func (m *Metrics) RecordGuard(guard, decision string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(guard, decision).Inc()
}

// SessionEventHandler counts every session event; subscribe it with
// SubscribeAll.
func (m *Metrics) SessionEventHandler() events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		if m != nil {
			m.SessionEvents.WithLabelValues(string(event.Type), string(event.Phase)).Inc()
		}
		return nil
	}
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metricsvc

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grupka"

// Metrics holds the application Prometheus collectors.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	domainEvents  *prometheus.CounterVec
	invitesPurged prometheus.Counter
	bioRequests   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
		domainEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "events_total",
			Help:      "Total number of domain actions, by kind.",
		}, []string{"kind"}),
		invitesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invites",
			Name:      "purged_total",
			Help:      "Total number of expired invites purged.",
		}),
		bioRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "bio_requests_total",
			Help:      "Total number of bio generation requests, by outcome.",
		}, []string{"success"}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.domainEvents,
		m.invitesPurged,
		m.bioRequests,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Domain action kinds.
const (
	UserRegistered = "user_registered"
	GroupCreated   = "group_created"
	MemberJoined   = "member_joined"
	MemberRemoved  = "member_removed"
	InvitesSent    = "invites_sent"
	ChildCreated   = "child_created"
	EventCreated   = "event_created"
	CommentAdded   = "comment_added"
)

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordDomainEvent(kind string) {
	m.domainEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordInvitesPurged(n int64) {
	if n > 0 {
		m.invitesPurged.Add(float64(n))
	}
}

func (m *Metrics) RecordBioRequest(success bool) {
	m.bioRequests.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// Middleware records request counts and durations, labelled by route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if ctx.Path() == "/metrics" {
				return next(ctx)
			}

			start := time.Now()
			m.httpInFlight.Inc()
			defer m.httpInFlight.Dec()

			err := next(ctx)
			if err != nil {
				// let the error handler write the response so that the status is known
				ctx.Error(err)
			}

			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := strings.ToUpper(ctx.Request().Method)
			status := strconv.Itoa(ctx.Response().Status)

			m.httpRequests.WithLabelValues(method, route, status).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

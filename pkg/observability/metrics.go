package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal    *prometheus.CounterVec
	SessionFailuresTotal   *prometheus.CounterVec
	PermissionChecksTotal  *prometheus.CounterVec

	// Billing webhook metrics
	WebhookEventsTotal     *prometheus.CounterVec
	WebhookFanoutTotal     *prometheus.CounterVec
	RoleTransitionsTotal   *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Order metrics
	OrdersTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menuforge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "menuforge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menuforge_authz_decisions_total",
				Help: "Route authorization decisions by outcome",
			},
			[]string{"outcome"},
		),
		SessionFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menuforge_session_failures_total",
				Help: "Session validation failures by kind",
			},
			[]string{"kind"},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menuforge_permission_checks_total",
				Help: "Permission predicate evaluations by result",
			},
			[]string{"result"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menuforge_webhook_events_total",
				Help: "Inbound payment webhook events by provider, type and outcome",
			},
			[]string{"provider", "event_type", "outcome"},
		),
		WebhookFanoutTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menuforge_webhook_fanout_total",
				Help: "Per-user role writes performed during webhook fan-out",
			},
			[]string{"provider", "status"},
		),
		RoleTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menuforge_role_transitions_total",
				Help: "User role transitions by target role",
			},
			[]string{"role"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menuforge_cache_hits_total",
				Help: "Cache hits by cache name",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menuforge_cache_misses_total",
				Help: "Cache misses by cache name",
			},
			[]string{"cache"},
		),
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menuforge_orders_total",
				Help: "Orders created or transitioned by status",
			},
			[]string{"status"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.SessionFailuresTotal,
		m.PermissionChecksTotal,
		m.WebhookEventsTotal,
		m.WebhookFanoutTotal,
		m.RoleTransitionsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.OrdersTotal,
	)

	return m
}

// Handler returns an HTTP handler exposing the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware instruments an HTTP handler with request metrics.
// The path label uses the route template, not the raw URL, to bound
// label cardinality; callers pass the mux route name via pathLabel.
func (m *Metrics) HTTPMiddleware(pathLabel string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Seconds()
		m.HTTPRequestsTotal.WithLabelValues(r.Method, pathLabel, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, pathLabel).Observe(duration)
	})
}

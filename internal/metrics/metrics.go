package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors the service exports on /metrics.
type Metrics struct {
	Registry            *prometheus.Registry
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	AuthFailures        *prometheus.CounterVec
	RefreshTokensIssued prometheus.Counter
	RefreshTokensSwept  prometheus.Counter
}

// New registers every collector on a fresh registry so tests can build as
// many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmanager_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskmanager_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmanager_auth_failures_total",
			Help: "Rejected credentials and tokens by reason.",
		}, []string{"reason"}),
		RefreshTokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_refresh_tokens_issued_total",
			Help: "Refresh token records created.",
		}),
		RefreshTokensSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_refresh_tokens_swept_total",
			Help: "Expired refresh token records deleted by the sweep.",
		}),
	}

	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.AuthFailures,
		m.RefreshTokensIssued,
		m.RefreshTokensSwept,
	)
	return m
}

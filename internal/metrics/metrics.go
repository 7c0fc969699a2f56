// Package metrics provides Prometheus instrumentation for auth operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the metrics interface consumed by the services layer.
type Collector interface {
	RecordSignIn(method string, success bool)
	RecordSignOut()
	RecordRefresh(success bool)
	RecordSessionCreated()
	RecordSessionEnded()
	RecordAnonymousSession()
	RecordOperationLatency(flow string, d time.Duration)
}

// PrometheusCollector implements Collector on a Prometheus registry.
type PrometheusCollector struct {
	signIn           *prometheus.CounterVec
	signOut          prometheus.Counter
	refresh          *prometheus.CounterVec
	sessionsCreated  prometheus.Counter
	sessionsEnded    prometheus.Counter
	anonymousCreated prometheus.Counter
	opLatency        *prometheus.HistogramVec
}

// NewPrometheusCollector creates a collector and registers its metrics.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		signIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multiauth_sign_in_total",
			Help: "Sign-in attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		signOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "multiauth_sign_out_total",
			Help: "Completed sign-outs.",
		}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multiauth_token_refresh_total",
			Help: "Token refresh attempts by outcome.",
		}, []string{"outcome"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "multiauth_sessions_created_total",
			Help: "Sessions created.",
		}),
		sessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "multiauth_sessions_ended_total",
			Help: "Sessions ended.",
		}),
		anonymousCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "multiauth_anonymous_sessions_total",
			Help: "Anonymous sessions created.",
		}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "multiauth_operation_latency_seconds",
			Help:    "Latency of auth operations by flow.",
			Buckets: prometheus.DefBuckets,
		}, []string{"flow"}),
	}

	reg.MustRegister(
		c.signIn, c.signOut, c.refresh,
		c.sessionsCreated, c.sessionsEnded, c.anonymousCreated,
		c.opLatency,
	)
	return c
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (c *PrometheusCollector) RecordSignIn(method string, success bool) {
	c.signIn.WithLabelValues(method, outcome(success)).Inc()
}

func (c *PrometheusCollector) RecordSignOut() {
	c.signOut.Inc()
}

func (c *PrometheusCollector) RecordRefresh(success bool) {
	c.refresh.WithLabelValues(outcome(success)).Inc()
}

func (c *PrometheusCollector) RecordSessionCreated() {
	c.sessionsCreated.Inc()
}

func (c *PrometheusCollector) RecordSessionEnded() {
	c.sessionsEnded.Inc()
}

func (c *PrometheusCollector) RecordAnonymousSession() {
	c.anonymousCreated.Inc()
}

func (c *PrometheusCollector) RecordOperationLatency(flow string, d time.Duration) {
	c.opLatency.WithLabelValues(flow).Observe(d.Seconds())
}

// Handler returns the HTTP handler serving the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Nop is a Collector that records nothing. Used in tests.
type Nop struct{}

func (Nop) RecordSignIn(string, bool)                   {}
func (Nop) RecordSignOut()                              {}
func (Nop) RecordRefresh(bool)                          {}
func (Nop) RecordSessionCreated()                       {}
func (Nop) RecordSessionEnded()                         {}
func (Nop) RecordAnonymousSession()                     {}
func (Nop) RecordOperationLatency(string, time.Duration) {}

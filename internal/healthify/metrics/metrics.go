// Package metrics exposes the Prometheus collectors for the session lifecycle
// and the local API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/healthify/internal/healthify/session"
)

const namespace = "healthify"

// Collector implements session.Recorder and records HTTP traffic.
type Collector struct {
	BootstrapTotal   *prometheus.CounterVec
	TransitionsTotal *prometheus.CounterVec
	SignedIn         prometheus.Gauge
	CacheFailures    *prometheus.CounterVec
	SignOutFailures  prometheus.Counter
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RateLimitedTotal prometheus.Counter
}

var _ session.Recorder = (*Collector)(nil)

// NewCollector creates and registers all metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	return &Collector{
		BootstrapTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_bootstrap_total",
				Help:      "Initial session lookups by outcome",
			},
			[]string{"result"}, // result=signed_in/signed_out/error
		),
		TransitionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Applied session transitions",
			},
			[]string{"source", "signed_in"},
		),
		SignedIn: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_signed_in",
				Help:      "1 while a user is signed in",
			},
		),
		CacheFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_cache_failures_total",
				Help:      "Failed session snapshot cache writes",
			},
			[]string{"op"},
		),
		SignOutFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_signout_failures_total",
				Help:      "Provider sign-out calls that failed",
			},
		),
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served",
			},
			[]string{"method", "code"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RateLimitedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
	}
}

func (c *Collector) BootstrapResolved(signedIn bool, err error) {
	result := "signed_out"
	switch {
	case err != nil:
		result = "error"
	case signedIn:
		result = "signed_in"
	}
	c.BootstrapTotal.WithLabelValues(result).Inc()
}

func (c *Collector) SessionChanged(source string, signedIn bool) {
	c.TransitionsTotal.WithLabelValues(source, strconv.FormatBool(signedIn)).Inc()
	if signedIn {
		c.SignedIn.Set(1)
	} else {
		c.SignedIn.Set(0)
	}
}

func (c *Collector) CacheFailed(op string) { c.CacheFailures.WithLabelValues(op).Inc() }

func (c *Collector) SignOutFailed() { c.SignOutFailures.Inc() }

// Middleware records count and latency of every request.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		c.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		c.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		if rec.status == http.StatusTooManyRequests {
			c.RateLimitedTotal.Inc()
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Handler serves the registry for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

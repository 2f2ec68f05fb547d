package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hunt-service/internal/domain"
)

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	guesses     *prometheus.CounterVec
	subscribers prometheus.Gauge
}

// NewMetrics registers the service collectors on registry. A nil registry
// gets a fresh one so tests do not collide on the global registerer.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hunt",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hunt",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hunt",
			Name:      "guesses_total",
			Help:      "Guess submissions by outcome.",
		}, []string{"outcome"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hunt",
			Name:      "leaderboard_subscribers",
			Help:      "Open leaderboard websocket connections.",
		}),
	}
	registry.MustRegister(m.requests, m.duration, m.guesses, m.subscribers)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// observeGuess records correct, incorrect, canned or the rejection kind.
func (m *Metrics) observeGuess(g domain.Guess, err error) {
	outcome := "incorrect"
	switch {
	case errors.Is(err, errRateLimited):
		outcome = "rate_limited"
	case err != nil:
		outcome = "rejected_" + domain.KindOf(err).String()
	case g.Correct:
		outcome = "correct"
	case !g.CountsAsGuess:
		outcome = "canned"
	}
	m.guesses.WithLabelValues(outcome).Inc()
}

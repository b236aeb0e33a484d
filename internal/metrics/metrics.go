// Package metrics exposes Prometheus collectors for the HTTP surface and the
// attempt lifecycle.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	attemptsStarted   *prometheus.CounterVec
	attemptsSubmitted *prometheus.CounterVec
	attemptsExpired   prometheus.Counter
	scorePercentage   prometheus.Histogram
	rewardsQueued     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		attemptsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attempts_started_total",
				Help: "Attempts handed out by start, split by fresh and resumed",
			},
			[]string{"resumed"},
		),
		attemptsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attempts_submitted_total",
				Help: "Evaluated attempts by pass outcome",
			},
			[]string{"passed"},
		),
		attemptsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "attempts_expired_total",
				Help: "Attempts moved to EXPIRED on access after their deadline",
			},
		),
		scorePercentage: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "attempt_score_percentage",
				Help:    "Distribution of evaluated attempt percentages",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		rewardsQueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xp_rewards_enqueued_total",
				Help: "XP reward enqueue attempts by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.attemptsStarted,
		m.attemptsSubmitted,
		m.attemptsExpired,
		m.scorePercentage,
		m.rewardsQueued,
	)
	return m
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.requests.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		m.requestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// AttemptStarted counts an attempt handed out by start.
func (m *Metrics) AttemptStarted(resumed bool) {
	m.attemptsStarted.WithLabelValues(strconv.FormatBool(resumed)).Inc()
}

// AttemptSubmitted records an evaluated attempt.
func (m *Metrics) AttemptSubmitted(passed bool, percentage float64) {
	m.attemptsSubmitted.WithLabelValues(strconv.FormatBool(passed)).Inc()
	m.scorePercentage.Observe(percentage)
}

// AttemptExpired counts a lazy expiry.
func (m *Metrics) AttemptExpired() {
	m.attemptsExpired.Inc()
}

// RewardEnqueued records the outcome of handing an XP reward to the queue.
func (m *Metrics) RewardEnqueued(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.rewardsQueued.WithLabelValues(result).Inc()
}

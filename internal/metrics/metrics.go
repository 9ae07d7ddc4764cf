// Package metrics exposes Prometheus metrics for GitLab calls and auth activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services use to report activity
type Recorder interface {
	RecordGitLabRequest(operation string, statusCode int, duration time.Duration)
	RecordAuthEvent(eventType string)
	RecordSessionsPurged(count int64)
}

// Collector is the Prometheus-backed Recorder
type Collector struct {
	gitlabRequests *prometheus.CounterVec
	gitlabLatency  *prometheus.HistogramVec
	authEvents     *prometheus.CounterVec
	sessionsPurged prometheus.Counter
}

// NewCollector builds a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gitlabRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perfguide_gitlab_requests_total",
			Help: "GitLab API requests by operation and response status",
		}, []string{"operation", "status_code"}),
		gitlabLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perfguide_gitlab_request_duration_seconds",
			Help:    "GitLab API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perfguide_auth_events_total",
			Help: "Auth state changes by event type",
		}, []string{"event"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perfguide_sessions_purged_total",
			Help: "Expired sessions removed by the cleanup worker",
		}),
	}

	reg.MustRegister(
		c.gitlabRequests,
		c.gitlabLatency,
		c.authEvents,
		c.sessionsPurged,
	)

	return c
}

// RecordGitLabRequest counts one API call. A zero status means no response arrived.
func (c *Collector) RecordGitLabRequest(operation string, statusCode int, duration time.Duration) {
	status := "network_error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	c.gitlabRequests.WithLabelValues(operation, status).Inc()
	c.gitlabLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordAuthEvent(eventType string) {
	c.authEvents.WithLabelValues(eventType).Inc()
}

func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// Handler returns the scrape handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordGitLabRequest(string, int, time.Duration) {}
func (Nop) RecordAuthEvent(string)                         {}
func (Nop) RecordSessionsPurged(int64)                     {}

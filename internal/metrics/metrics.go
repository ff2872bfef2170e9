// Package metrics exposes Prometheus collectors for ingestion runs.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	enrichAttemptsTotal        *prometheus.CounterVec
	breakerTripsTotal          *prometheus.CounterVec
	recordsSavedTotal          *prometheus.CounterVec
	tagsAssignedTotal          *prometheus.CounterVec
	thumbnailsTotal            *prometheus.CounterVec
	feedsTotal                 *prometheus.CounterVec
	runDurationSeconds         *prometheus.HistogramVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call more than once and every
// Observe helper calls it.
func Init() {
	once.Do(func() {
		enrichAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devfeed_enrich_attempts_total",
				Help: "Enrichment attempts, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		breakerTripsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devfeed_breaker_trips_total",
				Help: "Circuit breaker trips, labeled by source and reason.",
			},
			[]string{"source", "reason"},
		)

		recordsSavedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devfeed_records_saved_total",
				Help: "Records written to a store, labeled by source.",
			},
			[]string{"source"},
		)

		tagsAssignedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devfeed_tags_assigned_total",
				Help: "Tag backfills, labeled by source and classifier path.",
			},
			[]string{"source", "path"},
		)

		thumbnailsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devfeed_thumbnails_total",
				Help: "Thumbnail lookups, labeled by source and result.",
			},
			[]string{"source", "result"},
		)

		feedsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devfeed_feeds_total",
				Help: "Feed fetches, labeled by feed and status.",
			},
			[]string{"feed", "status"},
		)

		runDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devfeed_run_duration_seconds",
				Help:    "Wall-clock duration of a source run.",
				Buckets: []float64{1, 10, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"source"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devfeed_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveEnrichment counts one enrichment attempt.
func ObserveEnrichment(source, outcome string) {
	Init()
	enrichAttemptsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveBreakerTrip counts a circuit breaker latch.
func ObserveBreakerTrip(source, reason string) {
	Init()
	breakerTripsTotal.WithLabelValues(source, reason).Inc()
}

// ObserveRecordsSaved adds n persisted records for source.
func ObserveRecordsSaved(source string, n int) {
	Init()
	if n <= 0 {
		return
	}
	recordsSavedTotal.WithLabelValues(source).Add(float64(n))
}

// ObserveTags counts a tag backfill by classifier path (ai or keyword).
func ObserveTags(source, path string) {
	Init()
	tagsAssignedTotal.WithLabelValues(source, path).Inc()
}

// ObserveThumbnail counts a thumbnail lookup result (found, missing, error).
func ObserveThumbnail(source, result string) {
	Init()
	thumbnailsTotal.WithLabelValues(source, result).Inc()
}

// ObserveFeed counts a feed fetch.
func ObserveFeed(feed, status string) {
	Init()
	feedsTotal.WithLabelValues(feed, status).Inc()
}

// ObserveRun records the duration of a source run.
func ObserveRun(source string, d time.Duration) {
	Init()
	runDurationSeconds.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Push sends the default registry to a Prometheus Pushgateway under job.
// An empty gateway URL is a no-op.
func Push(ctx context.Context, gatewayURL, job string) error {
	if strings.TrimSpace(gatewayURL) == "" {
		return nil
	}
	Init()
	err := push.New(gatewayURL, job).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

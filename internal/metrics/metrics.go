// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlsTotal                *prometheus.CounterVec
	crawlDurationSeconds       *prometheus.HistogramVec
	imageResolutionsTotal      *prometheus.CounterVec
	episodesSyncedTotal        prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Crawl outcome labels.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeExcluded = "excluded"
	OutcomeError    = "error"
)

// Image resolution outcome labels.
const (
	ImageResolved = "resolved"
	ImageCached   = "cached"
	ImageDegraded = "degraded"
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ophim_crawls_total",
				Help: "Total number of reconciliation runs, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		crawlDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ophim_crawl_duration_seconds",
				Help:    "Histogram of full reconciliation latencies, labeled by outcome.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"outcome"},
		)

		imageResolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ophim_image_resolutions_total",
				Help: "Total number of artwork resolutions, labeled by role and outcome.",
			},
			[]string{"role", "outcome"},
		)

		episodesSyncedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ophim_episodes_synced_total",
				Help: "Total number of episode slots written during reconciliation.",
			},
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
	return promhttp.Handler()
}

// ObserveCrawl records one reconciliation run.
func ObserveCrawl(site, outcome string, duration time.Duration) {
	crawlsTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
	crawlDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveImageResolution records one artwork resolution outcome.
func ObserveImageResolution(role, outcome string) {
	imageResolutionsTotal.WithLabelValues(role, outcome).Inc()
}

// ObserveEpisodesSynced counts episode slots written in one sync.
func ObserveEpisodesSynced(count int) {
	if count > 0 {
		episodesSyncedTotal.Add(float64(count))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

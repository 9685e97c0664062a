// Package metrics exposes Prometheus collectors for ingestion runs and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"PriceNewsScanner/internal/domain"
)

const namespace = "pricenews"

// Skip reasons recorded for headlines that never reach the store.
const (
	SkipIrrelevant   = "irrelevant"
	SkipEmptySummary = "empty_summary"
)

// Metrics groups the ingestion collectors. A nil *Metrics is a no-op.
type Metrics struct {
	HeadlinesFetched prometheus.Counter
	HeadlinesSkipped *prometheus.CounterVec
	ItemFailures     *prometheus.CounterVec
	ArticlesSaved    *prometheus.CounterVec
	Runs             *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	RunInProgress    prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New registers all collectors on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HeadlinesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "headlines_fetched_total",
			Help:      "Headlines returned by listing fetches.",
		}),
		HeadlinesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "headlines_skipped_total",
			Help:      "Headlines dropped without error, by reason.",
		}, []string{"reason"}),
		ItemFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_failures_total",
			Help:      "Per-headline failures, by pipeline stage.",
		}, []string{"stage"}),
		ArticlesSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_saved_total",
			Help:      "Save calls, by outcome (created or duplicate).",
		}, []string{"outcome"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Ingestion runs, by mode and status.",
		}, []string{"mode", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of ingestion runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"mode"}),
		RunInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_in_progress",
			Help:      "1 while an ingestion run is active.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) ObserveHeadlines(n int) {
	if m == nil {
		return
	}
	m.HeadlinesFetched.Add(float64(n))
}

func (m *Metrics) ObserveSkip(reason string) {
	if m == nil {
		return
	}
	m.HeadlinesSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveFailure(stage domain.Stage) {
	if m == nil {
		return
	}
	m.ItemFailures.WithLabelValues(string(stage)).Inc()
}

func (m *Metrics) ObserveSave(created bool) {
	if m == nil {
		return
	}
	outcome := "duplicate"
	if created {
		outcome = "created"
	}
	m.ArticlesSaved.WithLabelValues(outcome).Inc()
}

// RunStarted flips the in-progress gauge and returns the matching finisher.
func (m *Metrics) RunStarted(mode domain.RunMode) func(status string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.RunInProgress.Set(1)
	return func(status string) {
		m.RunInProgress.Set(0)
		m.Runs.WithLabelValues(string(mode), status).Inc()
		m.RunDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	}
}

// ObserveRequest records one API request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(took.Seconds())
}

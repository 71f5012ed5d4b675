package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "valutatrade"

// Recorder owns the application collectors on a private registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	sourceFetches  *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	sourceRates    *prometheus.GaugeVec
	snapshotPairs  prometheus.Gauge
	lastRefresh    prometheus.Gauge
	trades         *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them, together with the
// Go and process collectors, on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rates",
			Name:      "source_fetches_total",
			Help:      "Rate source fetches by outcome.",
		}, []string{"source", "outcome"}),
		sourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rates",
			Name:      "source_fetch_duration_seconds",
			Help:      "Wall-clock duration of a single FetchRates call.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms to ~10s
		}, []string{"source"}),
		sourceRates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rates",
			Name:      "source_pairs",
			Help:      "Pairs returned by the last successful fetch of a source.",
		}, []string{"source"}),
		snapshotPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rates",
			Name:      "snapshot_pairs",
			Help:      "Pairs held in the cached snapshot.",
		}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rates",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last snapshot refresh.",
		}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "total",
			Help:      "Settlement attempts by side and outcome.",
		}, []string{"side", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "path"}),
	}

	r.registry.MustRegister(
		r.sourceFetches,
		r.sourceDuration,
		r.sourceRates,
		r.snapshotPairs,
		r.lastRefresh,
		r.trades,
		r.httpRequests,
		r.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return r
}

// Registry exposes the underlying registry (tests, extra collectors).
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one FetchRates call. count is ignored on error.
func (r *Recorder) ObserveFetch(source string, d time.Duration, count int, err error) {
	if r == nil {
		return
	}
	r.sourceDuration.WithLabelValues(source).Observe(d.Seconds())
	if err != nil {
		r.sourceFetches.WithLabelValues(source, "error").Inc()
		return
	}
	r.sourceFetches.WithLabelValues(source, "ok").Inc()
	r.sourceRates.WithLabelValues(source).Set(float64(count))
}

// ObserveSnapshot records the size and refresh time of a saved snapshot.
func (r *Recorder) ObserveSnapshot(pairs int, refreshedAt time.Time) {
	if r == nil {
		return
	}
	r.snapshotPairs.Set(float64(pairs))
	r.lastRefresh.Set(float64(refreshedAt.Unix()))
}

// ObserveTrade counts a settlement attempt.
func (r *Recorder) ObserveTrade(side string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.trades.WithLabelValues(side, outcome).Inc()
}

// ObserveHTTP records a served request. path should be the route template.
func (r *Recorder) ObserveHTTP(method, path string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

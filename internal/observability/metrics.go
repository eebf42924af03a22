package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// rainfall resolution pipeline.
type Metrics struct {
	ProviderRequests *prometheus.CounterVec // labels: provider, outcome={success,no_data,failure,skipped}
	ProviderDuration *prometheus.HistogramVec

	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,expired}
	CacheEntries prometheus.Gauge

	ResolveDuration   prometheus.Histogram
	FallbackDepth     prometheus.Histogram
	UnresolvedTotal   prometheus.Counter
	DayByDayFallbacks prometheus.Counter

	ResultsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all resolver metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ProviderRequests,
		m.ProviderDuration,
		m.CacheLookups,
		m.CacheEntries,
		m.ResolveDuration,
		m.FallbackDepth,
		m.UnresolvedTotal,
		m.DayByDayFallbacks,
		m.ResultsPublished,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainfall",
			Name:      "provider_requests_total",
			Help:      "Provider invocations by provider name and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rainfall",
			Name:      "provider_request_duration_seconds",
			Help:      "Upstream provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainfall",
			Name:      "cache_lookups_total",
			Help:      "Observation cache lookups by result.",
		}, []string{"result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rainfall",
			Name:      "cache_entries",
			Help:      "Current number of live cache entries.",
		}),
		ResolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rainfall",
			Name:      "resolve_duration_seconds",
			Help:      "Duration of a complete fallback-chain resolution.",
			Buckets:   []float64{0.001, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FallbackDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rainfall",
			Name:      "fallback_depth",
			Help:      "Number of providers invoked before a resolution concluded.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
		UnresolvedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rainfall",
			Name:      "unresolved_total",
			Help:      "Resolutions that exhausted the full provider chain.",
		}),
		DayByDayFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rainfall",
			Name:      "accumulation_day_by_day_total",
			Help:      "Accumulations that fell back to per-day resolution.",
		}),
		ResultsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rainfall",
			Name:      "results_published_total",
			Help:      "Resolved rainfall results published to the classifier topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rainfall",
			Name:      "publish_errors_total",
			Help:      "Failed publishes of resolved rainfall results.",
		}),
	}
}

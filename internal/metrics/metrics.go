// Package metrics exposes ranking engine telemetry as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kurtbrian03/docrank/internal/index"
	"github.com/kurtbrian03/docrank/internal/ranking"
)

// Metrics names as constants for consistency.
const (
	MetricSearches           = "docrank_searches_total"
	MetricSearchLatency      = "docrank_search_latency_seconds"
	MetricSearchResults      = "docrank_search_results"
	MetricIndexBuilds        = "docrank_index_builds_total"
	MetricIndexDocuments     = "docrank_index_documents"
	MetricIndexFailed        = "docrank_index_failed_documents_total"
	MetricIndexBuildDuration = "docrank_index_build_duration_seconds"
)

// Metrics implements ranking.Observer. All operations are thread-safe.
type Metrics struct {
	searches           *prometheus.CounterVec
	searchLatency      prometheus.Histogram
	searchResults      prometheus.Histogram
	indexBuilds        prometheus.Counter
	indexDocuments     prometheus.Gauge
	indexFailed        prometheus.Counter
	indexBuildDuration prometheus.Histogram
}

var _ ranking.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors. They are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSearches,
			Help: "Total number of ranked searches by mode",
		}, []string{"mode"}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSearchLatency,
			Help:    "Histogram of ranked search latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSearchResults,
			Help:    "Histogram of the number of results returned per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
		}),
		indexBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricIndexBuilds,
			Help: "Total number of index builds",
		}),
		indexDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricIndexDocuments,
			Help: "Number of documents in the current index snapshot",
		}),
		indexFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricIndexFailed,
			Help: "Total number of records skipped during index builds",
		}),
		indexBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricIndexBuildDuration,
			Help:    "Histogram of index build duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.searches,
		m.searchLatency,
		m.searchResults,
		m.indexBuilds,
		m.indexDocuments,
		m.indexFailed,
		m.indexBuildDuration,
	}
}

// BuildCompleted records an index build.
func (m *Metrics) BuildCompleted(stats index.BuildStats) {
	m.indexBuilds.Inc()
	m.indexDocuments.Set(float64(stats.Documents))
	m.indexFailed.Add(float64(stats.Failed))
	m.indexBuildDuration.Observe(stats.Duration.Seconds())
}

// SearchCompleted records a ranked search.
func (m *Metrics) SearchCompleted(mode ranking.Mode, results int, elapsed time.Duration) {
	m.searches.WithLabelValues(string(mode)).Inc()
	m.searchLatency.Observe(elapsed.Seconds())
	m.searchResults.Observe(float64(results))
}

// NewRegistry creates a registry holding the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "emissions_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard service.
type Metrics struct {
	RecordsLoaded     *prometheus.CounterVec // labels: dashboard
	RecordsExcluded   *prometheus.CounterVec // labels: dashboard, reason
	DatasetLoadErrors *prometheus.CounterVec // labels: dashboard
	DatasetRows       *prometheus.GaugeVec   // labels: dashboard

	// View rendering metrics.
	ViewsRendered      *prometheus.CounterVec // labels: dashboard, outcome={success,error}
	ViewRenderDuration prometheus.Histogram
	ViewCache          *prometheus.CounterVec // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Records that passed filtering and typing, per dashboard.",
		}, []string{"dashboard"}),
		RecordsExcluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_excluded_total",
			Help:      "Records dropped for data-quality problems, by dashboard and reason.",
		}, []string{"dashboard", "reason"}),
		DatasetLoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_load_errors_total",
			Help:      "Dataset loads that failed, per dashboard.",
		}, []string{"dashboard"}),
		DatasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows held for each dashboard after the last load.",
		}, []string{"dashboard"}),
		ViewsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "views_rendered_total",
			Help:      "View requests by dashboard and outcome.",
		}, []string{"dashboard", "outcome"}),
		ViewRenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_render_duration_seconds",
			Help:      "Time to derive a cohort and build its view.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		ViewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_cache_total",
			Help:      "View cache lookups by result.",
		}, []string{"result"}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates all service metrics and registers them with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()

	reg.MustRegister(
		m.RecordsLoaded,
		m.RecordsExcluded,
		m.DatasetLoadErrors,
		m.DatasetRows,
		m.ViewsRendered,
		m.ViewRenderDuration,
		m.ViewCache,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

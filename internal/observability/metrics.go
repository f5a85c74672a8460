package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// download and cleaning pipeline.
type Metrics struct {
	FilesDownloaded  prometheus.Counter
	DownloadRetries  prometheus.Counter
	DownloadFailures prometheus.Counter
	RowsParsed       prometheus.Counter
	MetadataLoaded   prometheus.Gauge

	// Raw-file cache metrics.
	CacheLookups *prometheus.CounterVec // labels: tier={memory,disk}, result={hit,miss}

	// Cleaning metrics.
	SentinelsReplaced prometheus.Counter
	ValuesImputed     *prometheus.CounterVec // labels: method={interpolate,neighbor}
	NeighborDownloads prometheus.Counter

	// Export metrics.
	ExportedRows    *prometheus.CounterVec // labels: sink={csv,hspf,kafka,influx,sqlite}
	FetchDuration   prometheus.Histogram
	StationDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesDownloaded,
		m.DownloadRetries,
		m.DownloadFailures,
		m.RowsParsed,
		m.MetadataLoaded,
		m.CacheLookups,
		m.SentinelsReplaced,
		m.ValuesImputed,
		m.NeighborDownloads,
		m.ExportedRows,
		m.FetchDuration,
		m.StationDuration,
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
		FilesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mesonet_etl",
			Name:      "files_downloaded_total",
			Help:      "Total MTS and metadata files fetched from the Mesonet web interface.",
		}),
		DownloadRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mesonet_etl",
			Name:      "download_retries_total",
			Help:      "Total retried download attempts.",
		}),
		DownloadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mesonet_etl",
			Name:      "download_failures_total",
			Help:      "Total downloads that failed after all attempts.",
		}),
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mesonet_etl",
			Name:      "rows_parsed_total",
			Help:      "Total observation rows parsed from MTS files.",
		}),
		MetadataLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mesonet_etl",
			Name:      "metadata_loaded",
			Help:      "1 once station metadata has been loaded.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mesonet_etl",
			Name:      "cache_lookups_total",
			Help:      "Raw-file cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		SentinelsReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mesonet_etl",
			Name:      "sentinels_replaced_total",
			Help:      "Total sentinel codes replaced with missing-value markers.",
		}),
		ValuesImputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mesonet_etl",
			Name:      "values_imputed_total",
			Help:      "Missing values filled, by imputation method.",
		}, []string{"method"}),
		NeighborDownloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mesonet_etl",
			Name:      "neighbor_downloads_total",
			Help:      "Day files downloaded from neighboring stations during fills.",
		}),
		ExportedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mesonet_etl",
			Name:      "exported_rows_total",
			Help:      "Rows written to each export sink.",
		}, []string{"sink"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mesonet_etl",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single day-file fetch.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mesonet_etl",
			Name:      "station_duration_seconds",
			Help:      "Duration of a complete station download and merge.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
	}
}

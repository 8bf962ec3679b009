package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "algosync_sync_runs_total",
		Help: "Total number of symbol sync passes started",
	})

	SyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "algosync_sync_failures_total",
		Help: "Total number of symbol sync passes that ended with an error",
	})

	SymbolsDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "algosync_symbols_discovered_total",
		Help: "Datasource symbols seen for the first time",
	}, []string{"datasource"})

	MappingRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "algosync_mapping_rows",
		Help: "Rows in the datasource_symbol table after the last sync",
	})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "algosync_sync_duration_seconds",
		Help:    "Duration of symbol sync passes",
		Buckets: prometheus.DefBuckets,
	})
)

// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Validation metrics
	ValidationsTotal   *prometheus.CounterVec
	ValidationFindings *prometheus.CounterVec
	ValidationDuration prometheus.Histogram

	// Compilation metrics
	CompilationsTotal  *prometheus.CounterVec
	RulesExtracted     *prometheus.CounterVec
	ExtractionWarnings prometheus.Counter
	ScriptSizeBytes    prometheus.Histogram

	// Backtest metrics
	BacktestsTotal   *prometheus.CounterVec
	BacktestDuration prometheus.Histogram
	BacktestsPending prometheus.Gauge

	// Storage metrics
	StrategiesSaved  prometheus.Counter
	StrategiesLoaded prometheus.Counter
	StoreErrors      *prometheus.CounterVec

	// Health metrics
	LastSuccessfulBacktest prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "strategy_graph_lab"
	}

	return &Metrics{
		// Validation metrics
		ValidationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "runs_total",
			Help:      "Total number of validation runs by outcome",
		}, []string{"outcome"}),
		ValidationFindings: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "findings_total",
			Help:      "Total number of validation findings by severity and code",
		}, []string{"severity", "code"}),
		ValidationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "duration_seconds",
			Help:      "Validation run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Compilation metrics
		CompilationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compile",
			Name:      "runs_total",
			Help:      "Total number of compilations by outcome",
		}, []string{"outcome"}),
		RulesExtracted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compile",
			Name:      "rules_extracted_total",
			Help:      "Total number of rules extracted by category",
		}, []string{"category"}),
		ExtractionWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compile",
			Name:      "extraction_warnings_total",
			Help:      "Total number of rule extraction warnings",
		}),
		ScriptSizeBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compile",
			Name:      "script_size_bytes",
			Help:      "Generated script size in bytes",
			Buckets:   []float64{256, 512, 1024, 2048, 4096, 8192, 16384},
		}),

		// Backtest metrics
		BacktestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by outcome",
		}, []string{"outcome"}),
		BacktestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		BacktestsPending: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "pending",
			Help:      "Number of backtests currently in flight",
		}),

		// Storage metrics
		StrategiesSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "strategies_saved_total",
			Help:      "Total number of strategy snapshots saved",
		}),
		StrategiesLoaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "strategies_loaded_total",
			Help:      "Total number of strategy snapshots loaded",
		}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total number of store errors by store and operation",
		}, []string{"store", "operation"}),

		// Health metrics
		LastSuccessfulBacktest: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_backtest_timestamp",
			Help:      "Unix timestamp of last successful backtest",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	metricPrefix = "kilowatch_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	analysisTotal   *prometheus.CounterVec
	analysisLatency *prometheus.HistogramVec

	simulationTotal   *prometheus.CounterVec
	simulationLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	alertsPublished *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger zerolog.Logger) {
	registerOnce.Do(func() {
		analysisTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "analysis_total",
				Help: "Total analysis computations by operation and result",
			},
			[]string{"operation", "result"},
		)
		analysisLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "analysis_latency_seconds",
				Help:    "Analysis computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		)

		simulationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outage_simulation_total",
				Help: "Total outage impact simulations by result",
			},
			[]string{"result"},
		)
		simulationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "outage_simulation_latency_seconds",
				Help:    "Outage impact simulation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		alertsPublished = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_published_total",
				Help: "Total alerts pushed to notification channels by channel and result",
			},
			[]string{"channel", "result"},
		)

		prometheus.MustRegister(
			analysisTotal,
			analysisLatency,
			simulationTotal,
			simulationLatency,
			exportTotal,
			exportLatency,
			alertsPublished,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveAnalysis records one analysis computation.
func ObserveAnalysis(operation, result string, duration time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if analysisTotal != nil {
		analysisTotal.WithLabelValues(operation, result).Inc()
	}
	if analysisLatency != nil {
		analysisLatency.WithLabelValues(operation, result).Observe(duration.Seconds())
	}
}

// ObserveSimulation records one outage impact simulation.
func ObserveSimulation(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if simulationTotal != nil {
		simulationTotal.WithLabelValues(result).Inc()
	}
	if simulationLatency != nil {
		simulationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveExport records one report export.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncAlertPublished counts one alert delivery attempt per channel.
func IncAlertPublished(channel, result string) {
	if channel == "" {
		channel = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if alertsPublished != nil {
		alertsPublished.WithLabelValues(channel, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)

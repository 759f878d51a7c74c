package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func registerDBMetrics(db *sql.DB, logger zerolog.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "consumption_records",
			Help: "Consumption records currently stored",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM consumption")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "ongoing_outages",
			Help: "Outages with no recorded end time",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM outages WHERE end_time IS NULL")
		},
	))
}

func queryCount(db *sql.DB, logger zerolog.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		logger.Warn().Err(err).Msg("metrics query failed")
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

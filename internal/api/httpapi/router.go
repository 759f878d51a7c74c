package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"kilowatch/internal/alerts"
	"kilowatch/internal/analysis/cost"
	"kilowatch/internal/analysis/efficiency"
	"kilowatch/internal/analysis/stats"
	"kilowatch/internal/energy"
	"kilowatch/internal/report"
)

// Deps bundles everything the router serves.
type Deps struct {
	Store    energy.Store
	Mutator  Mutator
	Engine   *cost.Engine
	Detector *stats.Detector
	Analyzer *efficiency.Analyzer
	Alerts   *alerts.Service
	Reports  *report.Builder
	Logger   zerolog.Logger
}

// NewRouter wires every handler onto a mux with request logging.
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/api/v1/stats", NewStatsHandler(deps.Detector))
	mux.Handle("/api/v1/anomalies", NewAnomaliesHandler(deps.Detector))
	mux.Handle("/api/v1/costs", NewCostsHandler(deps.Engine))
	mux.Handle("/api/v1/simulations/outage", NewSimulationHandler(deps.Engine))
	mux.Handle("/api/v1/efficiency", NewEfficiencyHandler(deps.Analyzer))
	mux.Handle("/api/v1/top-consumers", NewTopConsumersHandler(deps.Analyzer))
	mux.Handle("/api/v1/waste", NewWasteHandler(deps.Analyzer))
	mux.Handle("/api/v1/outage-consumption", NewOutageConsumptionHandler(deps.Analyzer))
	mux.Handle("/api/v1/alerts", NewAlertsHandler(deps.Alerts))
	mux.Handle("/api/v1/exports/report.xlsx", NewExportHandler(deps.Reports, "xlsx"))
	mux.Handle("/api/v1/exports/report.pdf", NewExportHandler(deps.Reports, "pdf"))

	mux.Handle("/api/v1/consumption", NewConsumptionHandler(deps.Store, deps.Mutator))
	mux.Handle("/api/v1/sources", NewSourcesHandler(deps.Store, deps.Mutator))
	mux.Handle("/api/v1/buildings", NewBuildingsHandler(deps.Store, deps.Mutator))
	mux.Handle("/api/v1/types", NewTypesHandler(deps.Store, deps.Mutator))
	mux.Handle("/api/v1/equipment", NewEquipmentHandler(deps.Store, deps.Mutator))
	mux.Handle("/api/v1/outages", NewOutagesHandler(deps.Store, deps.Mutator))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return loggingMiddleware(deps.Logger, mux)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

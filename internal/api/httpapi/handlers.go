// Package httpapi exposes the analytics engines over a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"kilowatch/internal/alerts"
	"kilowatch/internal/analysis/cost"
	"kilowatch/internal/analysis/efficiency"
	"kilowatch/internal/analysis/stats"
	"kilowatch/internal/energy"
	"kilowatch/internal/report"
)

// StatsHandler serves the global consumption summary.
type StatsHandler struct {
	detector *stats.Detector
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(detector *stats.Detector) *StatsHandler {
	return &StatsHandler{detector: detector}
}

// ServeHTTP handles GET /api/v1/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	summary, err := h.detector.GlobalStats(r.Context())
	if err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}
	if summary == nil {
		summary = &stats.Summary{}
	}
	writeJSON(w, summary)
}

// AnomaliesHandler serves anomaly detection sweeps.
type AnomaliesHandler struct {
	detector *stats.Detector
}

// NewAnomaliesHandler constructs an AnomaliesHandler.
func NewAnomaliesHandler(detector *stats.Detector) *AnomaliesHandler {
	return &AnomaliesHandler{detector: detector}
}

// ServeHTTP handles GET /api/v1/anomalies?factor=2.0.
func (h *AnomaliesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	factor, err := parseFloatQuery(r, "factor", stats.DefaultAnomalyFactor)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	anomalies, err := h.detector.DetectAnomalies(r.Context(), factor)
	if err != nil {
		http.Error(w, "detect anomalies error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, anomalies)
}

// CostsHandler serves per-source totals, comparison and period breakdowns.
type CostsHandler struct {
	engine *cost.Engine
}

// NewCostsHandler constructs a CostsHandler.
func NewCostsHandler(engine *cost.Engine) *CostsHandler {
	return &CostsHandler{engine: engine}
}

// ServeHTTP handles GET /api/v1/costs. With ?source= it returns the total
// cost of one source, with ?period= the calendar breakdown, and with neither
// the grid-versus-generator comparison.
func (h *CostsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if source := r.URL.Query().Get("source"); source != "" {
		total, err := h.engine.TotalCostForSource(r.Context(), source)
		if err != nil {
			http.Error(w, "query cost error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"source": source, "total_cost": total})
		return
	}

	if period := r.URL.Query().Get("period"); period != "" {
		byPeriod, err := h.engine.CostByPeriod(r.Context(), energy.Period(period))
		if errors.Is(err, energy.ErrInvalidPeriod) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "query cost by period error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, byPeriod)
		return
	}

	comparison, err := h.engine.CompareSources(r.Context())
	if err != nil {
		http.Error(w, "compare sources error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, comparison)
}

// SimulationHandler serves outage impact simulations.
type SimulationHandler struct {
	engine *cost.Engine
}

// NewSimulationHandler constructs a SimulationHandler.
func NewSimulationHandler(engine *cost.Engine) *SimulationHandler {
	return &SimulationHandler{engine: engine}
}

type simulationRequest struct {
	Start         time.Time `json:"start"`
	DurationHours float64   `json:"duration_hours"`
}

// ServeHTTP handles POST /api/v1/simulations/outage.
func (h *SimulationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req simulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	estimated, err := h.engine.SimulateOutageImpact(r.Context(), req.Start, req.DurationHours)
	switch {
	case errors.Is(err, cost.ErrNonPositiveDuration),
		errors.Is(err, cost.ErrGeneratorCostNotConfigured),
		errors.Is(err, cost.ErrNoConsumptionData),
		errors.Is(err, cost.ErrZeroRecordedDuration):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		http.Error(w, "simulation error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"duration_hours": req.DurationHours,
		"estimated_cost": estimated,
	})
}

// EfficiencyHandler serves the equipment and type efficiency reports.
type EfficiencyHandler struct {
	analyzer *efficiency.Analyzer
}

// NewEfficiencyHandler constructs an EfficiencyHandler.
func NewEfficiencyHandler(analyzer *efficiency.Analyzer) *EfficiencyHandler {
	return &EfficiencyHandler{analyzer: analyzer}
}

// ServeHTTP handles GET /api/v1/efficiency?equipment_id= or ?type_id=.
func (h *EfficiencyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if raw := r.URL.Query().Get("equipment_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid equipment_id", http.StatusBadRequest)
			return
		}
		equipmentReport, err := h.analyzer.EquipmentEfficiency(r.Context(), id)
		if err != nil {
			http.Error(w, "equipment efficiency error", http.StatusInternalServerError)
			return
		}
		if equipmentReport == nil {
			http.Error(w, "equipment not found", http.StatusNotFound)
			return
		}
		writeJSON(w, equipmentReport)
		return
	}

	if raw := r.URL.Query().Get("type_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid type_id", http.StatusBadRequest)
			return
		}
		typeReport, err := h.analyzer.TypeEfficiency(r.Context(), id)
		if err != nil {
			http.Error(w, "type efficiency error", http.StatusInternalServerError)
			return
		}
		if typeReport == nil {
			http.Error(w, "type not found", http.StatusNotFound)
			return
		}
		writeJSON(w, typeReport)
		return
	}

	http.Error(w, "equipment_id or type_id is required", http.StatusBadRequest)
}

// TopConsumersHandler serves the top-consumers ranking.
type TopConsumersHandler struct {
	analyzer *efficiency.Analyzer
}

// NewTopConsumersHandler constructs a TopConsumersHandler.
func NewTopConsumersHandler(analyzer *efficiency.Analyzer) *TopConsumersHandler {
	return &TopConsumersHandler{analyzer: analyzer}
}

// ServeHTTP handles GET /api/v1/top-consumers?n=5.
func (h *TopConsumersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	n, err := parseIntQuery(r, "n", efficiency.DefaultTopConsumers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ranking, err := h.analyzer.TopEnergyConsumers(r.Context(), n)
	if err != nil {
		http.Error(w, "top consumers error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, ranking)
}

// WasteHandler serves the waste detection sweep.
type WasteHandler struct {
	analyzer *efficiency.Analyzer
}

// NewWasteHandler constructs a WasteHandler.
func NewWasteHandler(analyzer *efficiency.Analyzer) *WasteHandler {
	return &WasteHandler{analyzer: analyzer}
}

// ServeHTTP handles GET /api/v1/waste?threshold=20.
func (h *WasteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	threshold, err := parseFloatQuery(r, "threshold", efficiency.DefaultWasteThresholdPct)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	wasteful, err := h.analyzer.DetectWaste(r.Context(), threshold)
	if err != nil {
		http.Error(w, "detect waste error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, wasteful)
}

// OutageConsumptionHandler serves the consumption-during-outages cross-check.
type OutageConsumptionHandler struct {
	analyzer *efficiency.Analyzer
}

// NewOutageConsumptionHandler constructs an OutageConsumptionHandler.
func NewOutageConsumptionHandler(analyzer *efficiency.Analyzer) *OutageConsumptionHandler {
	return &OutageConsumptionHandler{analyzer: analyzer}
}

// ServeHTTP handles GET /api/v1/outage-consumption.
func (h *OutageConsumptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	hits, err := h.analyzer.ConsumptionDuringOutages(r.Context())
	if err != nil {
		http.Error(w, "outage consumption error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, hits)
}

// AlertsHandler serves the assembled alert sweep. GET collects; POST collects
// and publishes to the configured channels.
type AlertsHandler struct {
	service *alerts.Service
}

// NewAlertsHandler constructs an AlertsHandler.
func NewAlertsHandler(service *alerts.Service) *AlertsHandler {
	return &AlertsHandler{service: service}
}

// ServeHTTP handles GET and POST /api/v1/alerts.
func (h *AlertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		collected, err := h.service.Collect(r.Context())
		if err != nil {
			http.Error(w, "collect alerts error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, collected)
	case http.MethodPost:
		published, err := h.service.Publish(r.Context())
		if err != nil {
			http.Error(w, "publish alerts error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, published)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ExportHandler serves the full report as a downloadable file.
type ExportHandler struct {
	builder *report.Builder
	format  string
}

// NewExportHandler constructs an ExportHandler for "xlsx" or "pdf".
func NewExportHandler(builder *report.Builder, format string) *ExportHandler {
	return &ExportHandler{builder: builder, format: format}
}

// ServeHTTP handles GET /api/v1/exports/report.{xlsx,pdf}.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	summary, err := h.builder.Build(r.Context())
	if err != nil {
		http.Error(w, "build report error", http.StatusInternalServerError)
		return
	}

	var data []byte
	var contentType, filename string
	switch h.format {
	case "pdf":
		data, err = report.BuildPDF(summary)
		contentType = "application/pdf"
		filename = "energy-report.pdf"
	default:
		data, err = report.BuildXLSX(summary)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "energy-report.xlsx"
	}
	if err != nil {
		http.Error(w, "render report error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

func parseFloatQuery(r *http.Request, key string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return parsed, nil
}

func parseIntQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return parsed, nil
}

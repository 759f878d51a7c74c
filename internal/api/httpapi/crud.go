package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"kilowatch/internal/energy"
)

// Mutator is the write side of the store, implemented by the SQLite store.
type Mutator interface {
	AddConsumption(ctx context.Context, equipmentID, sourceID int64, recordedAt time.Time, durationMinutes int64, energyKWh float64) (int64, error)
	UpdateConsumption(ctx context.Context, id, equipmentID, sourceID int64, recordedAt time.Time, durationMinutes int64, energyKWh float64) error
	DeleteConsumption(ctx context.Context, id int64) error

	AddSource(ctx context.Context, name string, costPerKWh float64, description string) (int64, error)
	UpdateSource(ctx context.Context, id int64, name string, costPerKWh float64, description string) error
	DeleteSource(ctx context.Context, id int64) error

	AddBuilding(ctx context.Context, name, location, buildingType string) (int64, error)
	UpdateBuilding(ctx context.Context, id int64, name, location, buildingType string) error
	DeleteBuilding(ctx context.Context, id int64) error

	AddEquipmentType(ctx context.Context, name string, theoreticalKWhPerHour float64) (int64, error)
	UpdateEquipmentType(ctx context.Context, id int64, name string, theoreticalKWhPerHour float64) error
	DeleteEquipmentType(ctx context.Context, id int64) error

	AddEquipment(ctx context.Context, name string, ratedPowerWatts float64, typeID, buildingID int64) (int64, error)
	UpdateEquipment(ctx context.Context, id int64, name string, ratedPowerWatts float64, typeID, buildingID int64) error
	DeleteEquipment(ctx context.Context, id int64) error

	AddOutage(ctx context.Context, buildingID int64, startTime, endTime time.Time, cause string) (int64, error)
	CloseOutage(ctx context.Context, id int64, endTime time.Time) error
	UpdateOutage(ctx context.Context, id, buildingID int64, startTime, endTime time.Time, cause string) error
	DeleteOutage(ctx context.Context, id int64) error
}

// ConsumptionHandler serves consumption record CRUD.
type ConsumptionHandler struct {
	store   energy.Store
	mutator Mutator
}

// NewConsumptionHandler constructs a ConsumptionHandler.
func NewConsumptionHandler(store energy.Store, mutator Mutator) *ConsumptionHandler {
	return &ConsumptionHandler{store: store, mutator: mutator}
}

type consumptionRequest struct {
	EquipmentID     int64     `json:"equipment_id"`
	SourceID        int64     `json:"source_id"`
	RecordedAt      time.Time `json:"recorded_at"`
	DurationMinutes int64     `json:"duration_minutes"`
	EnergyKWh       float64   `json:"energy_kwh"`
}

// ServeHTTP handles /api/v1/consumption. GET lists (optionally filtered by
// source or equipment_id), POST creates, PUT updates ?id=, DELETE removes ?id=.
func (h *ConsumptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		var req consumptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		id, err := h.mutator.AddConsumption(r.Context(), req.EquipmentID, req.SourceID, req.RecordedAt, req.DurationMinutes, req.EnergyKWh)
		if err != nil {
			http.Error(w, "insert consumption error", http.StatusInternalServerError)
			return
		}
		writeCreated(w, id)
	case http.MethodPut:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		var req consumptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		err := h.mutator.UpdateConsumption(r.Context(), id, req.EquipmentID, req.SourceID, req.RecordedAt, req.DurationMinutes, req.EnergyKWh)
		writeMutation(w, err, "update consumption error")
	case http.MethodDelete:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		writeMutation(w, h.mutator.DeleteConsumption(r.Context(), id), "delete consumption error")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *ConsumptionHandler) list(w http.ResponseWriter, r *http.Request) {
	if source := r.URL.Query().Get("source"); source != "" {
		records, err := h.store.ConsumptionBySource(r.Context(), source)
		if err != nil {
			http.Error(w, "query consumption error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, records)
		return
	}
	if raw := r.URL.Query().Get("equipment_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid equipment_id", http.StatusBadRequest)
			return
		}
		records, err := h.store.ConsumptionByEquipment(r.Context(), id)
		if err != nil {
			http.Error(w, "query consumption error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, records)
		return
	}
	records, err := h.store.AllConsumption(r.Context())
	if err != nil {
		http.Error(w, "query consumption error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

// SourcesHandler serves energy source CRUD.
type SourcesHandler struct {
	store   energy.Store
	mutator Mutator
}

// NewSourcesHandler constructs a SourcesHandler.
func NewSourcesHandler(store energy.Store, mutator Mutator) *SourcesHandler {
	return &SourcesHandler{store: store, mutator: mutator}
}

// ServeHTTP handles /api/v1/sources.
func (h *SourcesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sources, err := h.store.AllSources(r.Context())
		if err != nil {
			http.Error(w, "query sources error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, sources)
	case http.MethodPost:
		var req energy.Source
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		id, err := h.mutator.AddSource(r.Context(), req.Name, req.CostPerKWh, req.Description)
		if err != nil {
			http.Error(w, "insert source error", http.StatusInternalServerError)
			return
		}
		writeCreated(w, id)
	case http.MethodPut:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		var req energy.Source
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		writeMutation(w, h.mutator.UpdateSource(r.Context(), id, req.Name, req.CostPerKWh, req.Description), "update source error")
	case http.MethodDelete:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		writeMutation(w, h.mutator.DeleteSource(r.Context(), id), "delete source error")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// BuildingsHandler serves building CRUD.
type BuildingsHandler struct {
	store   energy.Store
	mutator Mutator
}

// NewBuildingsHandler constructs a BuildingsHandler.
func NewBuildingsHandler(store energy.Store, mutator Mutator) *BuildingsHandler {
	return &BuildingsHandler{store: store, mutator: mutator}
}

// ServeHTTP handles /api/v1/buildings.
func (h *BuildingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		buildings, err := h.store.AllBuildings(r.Context())
		if err != nil {
			http.Error(w, "query buildings error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, buildings)
	case http.MethodPost:
		var req energy.Building
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		id, err := h.mutator.AddBuilding(r.Context(), req.Name, req.Location, req.Type)
		if err != nil {
			http.Error(w, "insert building error", http.StatusInternalServerError)
			return
		}
		writeCreated(w, id)
	case http.MethodPut:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		var req energy.Building
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		writeMutation(w, h.mutator.UpdateBuilding(r.Context(), id, req.Name, req.Location, req.Type), "update building error")
	case http.MethodDelete:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		writeMutation(w, h.mutator.DeleteBuilding(r.Context(), id), "delete building error")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// TypesHandler serves equipment type CRUD.
type TypesHandler struct {
	store   energy.Store
	mutator Mutator
}

// NewTypesHandler constructs a TypesHandler.
func NewTypesHandler(store energy.Store, mutator Mutator) *TypesHandler {
	return &TypesHandler{store: store, mutator: mutator}
}

// ServeHTTP handles /api/v1/types.
func (h *TypesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		types, err := h.store.AllTypes(r.Context())
		if err != nil {
			http.Error(w, "query types error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, types)
	case http.MethodPost:
		var req energy.EquipmentType
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		id, err := h.mutator.AddEquipmentType(r.Context(), req.Name, req.TheoreticalKWhPerHour)
		if err != nil {
			http.Error(w, "insert type error", http.StatusInternalServerError)
			return
		}
		writeCreated(w, id)
	case http.MethodPut:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		var req energy.EquipmentType
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		writeMutation(w, h.mutator.UpdateEquipmentType(r.Context(), id, req.Name, req.TheoreticalKWhPerHour), "update type error")
	case http.MethodDelete:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		writeMutation(w, h.mutator.DeleteEquipmentType(r.Context(), id), "delete type error")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// EquipmentHandler serves equipment CRUD.
type EquipmentHandler struct {
	store   energy.Store
	mutator Mutator
}

// NewEquipmentHandler constructs an EquipmentHandler.
func NewEquipmentHandler(store energy.Store, mutator Mutator) *EquipmentHandler {
	return &EquipmentHandler{store: store, mutator: mutator}
}

// ServeHTTP handles /api/v1/equipment.
func (h *EquipmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if raw := r.URL.Query().Get("id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				http.Error(w, "invalid id", http.StatusBadRequest)
				return
			}
			info, err := h.store.EquipmentDetails(r.Context(), id)
			if err != nil {
				http.Error(w, "query equipment error", http.StatusInternalServerError)
				return
			}
			if info == nil {
				http.Error(w, "equipment not found", http.StatusNotFound)
				return
			}
			writeJSON(w, info)
			return
		}
		infos, err := h.store.AllEquipment(r.Context())
		if err != nil {
			http.Error(w, "query equipment error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, infos)
	case http.MethodPost:
		var req energy.Equipment
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		id, err := h.mutator.AddEquipment(r.Context(), req.Name, req.RatedPowerWatts, req.TypeID, req.BuildingID)
		if err != nil {
			http.Error(w, "insert equipment error", http.StatusInternalServerError)
			return
		}
		writeCreated(w, id)
	case http.MethodPut:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		var req energy.Equipment
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		writeMutation(w, h.mutator.UpdateEquipment(r.Context(), id, req.Name, req.RatedPowerWatts, req.TypeID, req.BuildingID), "update equipment error")
	case http.MethodDelete:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		writeMutation(w, h.mutator.DeleteEquipment(r.Context(), id), "delete equipment error")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// OutagesHandler serves outage CRUD plus the close operation.
type OutagesHandler struct {
	store   energy.Store
	mutator Mutator
}

// NewOutagesHandler constructs an OutagesHandler.
func NewOutagesHandler(store energy.Store, mutator Mutator) *OutagesHandler {
	return &OutagesHandler{store: store, mutator: mutator}
}

type outageRequest struct {
	BuildingID int64     `json:"building_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time,omitempty"`
	Cause      string    `json:"cause,omitempty"`
}

// ServeHTTP handles /api/v1/outages. POST with ?action=close and an end_time
// body closes an ongoing outage instead of creating one.
func (h *OutagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		outages, err := h.store.AllOutages(r.Context())
		if err != nil {
			http.Error(w, "query outages error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, outages)
	case http.MethodPost:
		if r.URL.Query().Get("action") == "close" {
			h.close(w, r)
			return
		}
		var req outageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		id, err := h.mutator.AddOutage(r.Context(), req.BuildingID, req.StartTime, req.EndTime, req.Cause)
		if err != nil {
			http.Error(w, "insert outage error", http.StatusInternalServerError)
			return
		}
		writeCreated(w, id)
	case http.MethodPut:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		var req outageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		writeMutation(w, h.mutator.UpdateOutage(r.Context(), id, req.BuildingID, req.StartTime, req.EndTime, req.Cause), "update outage error")
	case http.MethodDelete:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		writeMutation(w, h.mutator.DeleteOutage(r.Context(), id), "delete outage error")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *OutagesHandler) close(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	var req struct {
		EndTime time.Time `json:"end_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EndTime.IsZero() {
		http.Error(w, "end_time is required", http.StatusBadRequest)
		return
	}
	writeMutation(w, h.mutator.CloseOutage(r.Context(), id, req.EndTime), "close outage error")
}

func requireID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeCreated(w http.ResponseWriter, id int64) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]int64{"id": id})
}

func writeMutation(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, energy.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case err != nil:
		http.Error(w, message, http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

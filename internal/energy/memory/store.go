// Package memory provides an in-memory implementation of the energy data
// contract. It mirrors the SQLite store's join behavior so analytics code can
// be exercised without a database file.
package memory

import (
	"context"
	"sort"
	"sync"

	"kilowatch/internal/energy"
)

// Store holds all entities in maps guarded by one mutex. Reads return copies,
// never internal slices.
type Store struct {
	mu sync.RWMutex

	nextID      int64
	buildings   map[int64]energy.Building
	types       map[int64]energy.EquipmentType
	sources     map[int64]energy.Source
	equipment   map[int64]energy.Equipment
	consumption map[int64]energy.ConsumptionRecord
	outages     map[int64]energy.Outage
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		nextID:      1,
		buildings:   make(map[int64]energy.Building),
		types:       make(map[int64]energy.EquipmentType),
		sources:     make(map[int64]energy.Source),
		equipment:   make(map[int64]energy.Equipment),
		consumption: make(map[int64]energy.ConsumptionRecord),
		outages:     make(map[int64]energy.Outage),
	}
}

func (s *Store) allocateID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// AddBuilding stores a building and returns it with its assigned id.
func (s *Store) AddBuilding(building energy.Building) energy.Building {
	s.mu.Lock()
	defer s.mu.Unlock()
	if building.ID == 0 {
		building.ID = s.allocateID()
	}
	s.buildings[building.ID] = building
	return building
}

// AddType stores an equipment type and returns it with its assigned id.
func (s *Store) AddType(equipmentType energy.EquipmentType) energy.EquipmentType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if equipmentType.ID == 0 {
		equipmentType.ID = s.allocateID()
	}
	s.types[equipmentType.ID] = equipmentType
	return equipmentType
}

// AddSource stores a source and returns it with its assigned id.
func (s *Store) AddSource(source energy.Source) energy.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if source.ID == 0 {
		source.ID = s.allocateID()
	}
	s.sources[source.ID] = source
	return source
}

// AddEquipment stores an equipment row and returns it with its assigned id.
func (s *Store) AddEquipment(equipment energy.Equipment) energy.Equipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if equipment.ID == 0 {
		equipment.ID = s.allocateID()
	}
	s.equipment[equipment.ID] = equipment
	return equipment
}

// AddConsumption stores a consumption record and returns it with its assigned
// id. Join fields are resolved at read time, not here.
func (s *Store) AddConsumption(record energy.ConsumptionRecord) energy.ConsumptionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == 0 {
		record.ID = s.allocateID()
	}
	s.consumption[record.ID] = record
	return record
}

// AddOutage stores an outage and returns it with its assigned id.
func (s *Store) AddOutage(outage energy.Outage) energy.Outage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if outage.ID == 0 {
		outage.ID = s.allocateID()
	}
	s.outages[outage.ID] = outage
	return outage
}

func (s *Store) joinRecord(record energy.ConsumptionRecord) energy.ConsumptionRecord {
	if source, ok := s.sources[record.SourceID]; ok {
		record.SourceName = source.Name
	}
	if equipment, ok := s.equipment[record.EquipmentID]; ok {
		record.EquipmentName = equipment.Name
		if building, ok := s.buildings[equipment.BuildingID]; ok {
			record.BuildingName = building.Name
		}
	}
	return record
}

// AllConsumption returns every record joined with names, ordered by timestamp.
func (s *Store) AllConsumption(ctx context.Context) ([]energy.ConsumptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]energy.ConsumptionRecord, 0, len(s.consumption))
	for _, record := range s.consumption {
		records = append(records, s.joinRecord(record))
	}
	sortRecords(records)
	return records, nil
}

// ConsumptionBySource returns the records drawn from the named source.
func (s *Store) ConsumptionBySource(ctx context.Context, sourceName string) ([]energy.ConsumptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []energy.ConsumptionRecord
	for _, record := range s.consumption {
		joined := s.joinRecord(record)
		if joined.SourceName == sourceName {
			records = append(records, joined)
		}
	}
	sortRecords(records)
	return records, nil
}

// ConsumptionByEquipment returns the records of one equipment.
func (s *Store) ConsumptionByEquipment(ctx context.Context, equipmentID int64) ([]energy.ConsumptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []energy.ConsumptionRecord
	for _, record := range s.consumption {
		if record.EquipmentID == equipmentID {
			records = append(records, s.joinRecord(record))
		}
	}
	sortRecords(records)
	return records, nil
}

// AllOutages returns every outage joined with its building name, ordered by
// start time descending.
func (s *Store) AllOutages(ctx context.Context) ([]energy.Outage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outages := make([]energy.Outage, 0, len(s.outages))
	for _, outage := range s.outages {
		if building, ok := s.buildings[outage.BuildingID]; ok {
			outage.BuildingName = building.Name
		}
		outages = append(outages, outage)
	}
	sort.Slice(outages, func(i, j int) bool {
		return outages[i].StartTime.After(outages[j].StartTime)
	})
	return outages, nil
}

// EquipmentDetails returns one equipment joined with its type rate, or nil
// when the equipment does not exist.
func (s *Store) EquipmentDetails(ctx context.Context, equipmentID int64) (*energy.EquipmentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	equipment, ok := s.equipment[equipmentID]
	if !ok {
		return nil, nil
	}
	info := s.joinEquipment(equipment)
	return &info, nil
}

func (s *Store) joinEquipment(equipment energy.Equipment) energy.EquipmentInfo {
	info := energy.EquipmentInfo{
		ID:              equipment.ID,
		Name:            equipment.Name,
		RatedPowerWatts: equipment.RatedPowerWatts,
		TypeID:          equipment.TypeID,
	}
	if equipmentType, ok := s.types[equipment.TypeID]; ok {
		info.TypeName = equipmentType.Name
		info.TheoreticalKWhPerHour = equipmentType.TheoreticalKWhPerHour
	}
	if building, ok := s.buildings[equipment.BuildingID]; ok {
		info.BuildingName = building.Name
	}
	return info
}

// AllEquipment returns every equipment row with joined names, ordered by id.
func (s *Store) AllEquipment(ctx context.Context) ([]energy.EquipmentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]energy.EquipmentInfo, 0, len(s.equipment))
	for _, equipment := range s.equipment {
		infos = append(infos, s.joinEquipment(equipment))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// TypeDetails returns one equipment type, or nil when it does not exist.
func (s *Store) TypeDetails(ctx context.Context, typeID int64) (*energy.EquipmentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	equipmentType, ok := s.types[typeID]
	if !ok {
		return nil, nil
	}
	return &equipmentType, nil
}

// AllTypes returns every equipment type, ordered by id.
func (s *Store) AllTypes(ctx context.Context) ([]energy.EquipmentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]energy.EquipmentType, 0, len(s.types))
	for _, equipmentType := range s.types {
		types = append(types, equipmentType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types, nil
}

// CostPerKWh returns the configured unit cost for a source by name.
func (s *Store) CostPerKWh(ctx context.Context, sourceName string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, source := range s.sources {
		if source.Name == sourceName {
			return source.CostPerKWh, true, nil
		}
	}
	return 0, false, nil
}

// AllSources returns every source, ordered by id.
func (s *Store) AllSources(ctx context.Context) ([]energy.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make([]energy.Source, 0, len(s.sources))
	for _, source := range s.sources {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })
	return sources, nil
}

// AllBuildings returns every building, ordered by id.
func (s *Store) AllBuildings(ctx context.Context) ([]energy.Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buildings := make([]energy.Building, 0, len(s.buildings))
	for _, building := range s.buildings {
		buildings = append(buildings, building)
	}
	sort.Slice(buildings, func(i, j int) bool { return buildings[i].ID < buildings[j].ID })
	return buildings, nil
}

func sortRecords(records []energy.ConsumptionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].ID < records[j].ID
		}
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}

var _ energy.Store = (*Store)(nil)

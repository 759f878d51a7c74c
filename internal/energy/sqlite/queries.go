package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kilowatch/internal/energy"
)

const consumptionSelect = `
SELECT
	c.id,
	c.equipment_id,
	c.source_id,
	c.recorded_at,
	c.duration_minutes,
	c.energy_kwh,
	s.name AS source_name,
	e.name AS equipment_name,
	b.name AS building_name
FROM consumption c
JOIN sources s ON c.source_id = s.id
JOIN equipment e ON c.equipment_id = e.id
JOIN buildings b ON e.building_id = b.id
`

// AllConsumption returns every consumption record joined with its source,
// equipment and building names, ordered by timestamp ascending.
func (s *Store) AllConsumption(ctx context.Context) ([]energy.ConsumptionRecord, error) {
	return s.queryConsumption(ctx, consumptionSelect+`ORDER BY c.recorded_at`)
}

// ConsumptionBySource returns the records drawn from the named source.
func (s *Store) ConsumptionBySource(ctx context.Context, sourceName string) ([]energy.ConsumptionRecord, error) {
	return s.queryConsumption(ctx, consumptionSelect+`WHERE s.name = ? ORDER BY c.recorded_at`, sourceName)
}

// ConsumptionByEquipment returns the records of one equipment.
func (s *Store) ConsumptionByEquipment(ctx context.Context, equipmentID int64) ([]energy.ConsumptionRecord, error) {
	return s.queryConsumption(ctx, consumptionSelect+`WHERE c.equipment_id = ? ORDER BY c.recorded_at`, equipmentID)
}

// ConsumptionByBuilding returns the records of one building's equipment.
func (s *Store) ConsumptionByBuilding(ctx context.Context, buildingID int64) ([]energy.ConsumptionRecord, error) {
	return s.queryConsumption(ctx, consumptionSelect+`WHERE e.building_id = ? ORDER BY c.recorded_at`, buildingID)
}

func (s *Store) queryConsumption(ctx context.Context, query string, args ...any) ([]energy.ConsumptionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying consumption: %w", err)
	}
	defer rows.Close()

	var records []energy.ConsumptionRecord
	for rows.Next() {
		var record energy.ConsumptionRecord
		var recordedAt string
		if err := rows.Scan(
			&record.ID,
			&record.EquipmentID,
			&record.SourceID,
			&recordedAt,
			&record.DurationMinutes,
			&record.EnergyKWh,
			&record.SourceName,
			&record.EquipmentName,
			&record.BuildingName,
		); err != nil {
			return nil, fmt.Errorf("scanning consumption row: %w", err)
		}
		record.Timestamp, err = time.Parse(timeLayout, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded_at: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// AllOutages returns every outage joined with its building name, ordered by
// start time descending. A NULL end time maps to the zero time (ongoing).
func (s *Store) AllOutages(ctx context.Context) ([]energy.Outage, error) {
	query := `
SELECT o.id, o.building_id, b.name AS building_name, o.start_time, o.end_time, o.cause
FROM outages o
JOIN buildings b ON o.building_id = b.id
ORDER BY o.start_time DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying outages: %w", err)
	}
	defer rows.Close()

	var outages []energy.Outage
	for rows.Next() {
		var outage energy.Outage
		var startTime string
		var endTime, cause sql.NullString
		if err := rows.Scan(&outage.ID, &outage.BuildingID, &outage.BuildingName, &startTime, &endTime, &cause); err != nil {
			return nil, fmt.Errorf("scanning outage row: %w", err)
		}
		outage.StartTime, err = time.Parse(timeLayout, startTime)
		if err != nil {
			return nil, fmt.Errorf("parsing start_time: %w", err)
		}
		if endTime.Valid && endTime.String != "" {
			outage.EndTime, err = time.Parse(timeLayout, endTime.String)
			if err != nil {
				return nil, fmt.Errorf("parsing end_time: %w", err)
			}
		}
		outage.Cause = cause.String
		outages = append(outages, outage)
	}
	return outages, rows.Err()
}

const equipmentInfoSelect = `
SELECT
	e.id,
	e.name,
	e.rated_power_watts,
	e.type_id,
	t.name AS type_name,
	t.theoretical_kwh_per_hour,
	b.name AS building_name
FROM equipment e
JOIN equipment_types t ON e.type_id = t.id
JOIN buildings b ON e.building_id = b.id
`

// EquipmentDetails returns one equipment joined with its type rate and
// building name, or nil when the equipment does not exist.
func (s *Store) EquipmentDetails(ctx context.Context, equipmentID int64) (*energy.EquipmentInfo, error) {
	var info energy.EquipmentInfo
	err := s.db.GetContext(ctx, &info, equipmentInfoSelect+`WHERE e.id = ?`, equipmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying equipment details: %w", err)
	}
	return &info, nil
}

// AllEquipment returns every equipment row with joined names.
func (s *Store) AllEquipment(ctx context.Context) ([]energy.EquipmentInfo, error) {
	var infos []energy.EquipmentInfo
	if err := s.db.SelectContext(ctx, &infos, equipmentInfoSelect+`ORDER BY e.id`); err != nil {
		return nil, fmt.Errorf("querying equipment: %w", err)
	}
	return infos, nil
}

// EquipmentByBuilding returns the equipment installed in one building.
func (s *Store) EquipmentByBuilding(ctx context.Context, buildingID int64) ([]energy.EquipmentInfo, error) {
	var infos []energy.EquipmentInfo
	if err := s.db.SelectContext(ctx, &infos, equipmentInfoSelect+`WHERE e.building_id = ? ORDER BY e.id`, buildingID); err != nil {
		return nil, fmt.Errorf("querying equipment by building: %w", err)
	}
	return infos, nil
}

// TypeDetails returns one equipment type, or nil when it does not exist.
func (s *Store) TypeDetails(ctx context.Context, typeID int64) (*energy.EquipmentType, error) {
	var equipmentType energy.EquipmentType
	err := s.db.GetContext(ctx, &equipmentType,
		`SELECT id, name, theoretical_kwh_per_hour FROM equipment_types WHERE id = ?`, typeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying type details: %w", err)
	}
	return &equipmentType, nil
}

// AllTypes returns every equipment type.
func (s *Store) AllTypes(ctx context.Context) ([]energy.EquipmentType, error) {
	var types []energy.EquipmentType
	if err := s.db.SelectContext(ctx, &types,
		`SELECT id, name, theoretical_kwh_per_hour FROM equipment_types ORDER BY id`); err != nil {
		return nil, fmt.Errorf("querying types: %w", err)
	}
	return types, nil
}

// CostPerKWh returns the configured unit cost for a source by name; ok is
// false when the source is unknown.
func (s *Store) CostPerKWh(ctx context.Context, sourceName string) (float64, bool, error) {
	var cost float64
	err := s.db.GetContext(ctx, &cost, `SELECT cost_per_kwh FROM sources WHERE name = ?`, sourceName)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying cost per kwh: %w", err)
	}
	return cost, true, nil
}

// AllSources returns every energy source.
func (s *Store) AllSources(ctx context.Context) ([]energy.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, cost_per_kwh, description FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []energy.Source
	for rows.Next() {
		var source energy.Source
		var description sql.NullString
		if err := rows.Scan(&source.ID, &source.Name, &source.CostPerKWh, &description); err != nil {
			return nil, fmt.Errorf("scanning source row: %w", err)
		}
		source.Description = description.String
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// AllBuildings returns every building.
func (s *Store) AllBuildings(ctx context.Context) ([]energy.Building, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, location, type FROM buildings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying buildings: %w", err)
	}
	defer rows.Close()

	var buildings []energy.Building
	for rows.Next() {
		var building energy.Building
		var location, buildingType sql.NullString
		if err := rows.Scan(&building.ID, &building.Name, &location, &buildingType); err != nil {
			return nil, fmt.Errorf("scanning building row: %w", err)
		}
		building.Location = location.String
		building.Type = buildingType.String
		buildings = append(buildings, building)
	}
	return buildings, rows.Err()
}

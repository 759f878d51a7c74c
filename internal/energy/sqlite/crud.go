package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kilowatch/internal/energy"
)

// The write surface below backs the data-entry screens. Analytics never
// mutates: engines only consume the read contract.

// AddConsumption inserts one consumption record and returns its id.
func (s *Store) AddConsumption(ctx context.Context, equipmentID, sourceID int64, recordedAt time.Time, durationMinutes int64, energyKWh float64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO consumption (equipment_id, source_id, recorded_at, duration_minutes, energy_kwh) VALUES (?, ?, ?, ?, ?)`,
		equipmentID, sourceID, recordedAt.Format(timeLayout), durationMinutes, energyKWh)
	if err != nil {
		return 0, fmt.Errorf("inserting consumption: %w", err)
	}
	return result.LastInsertId()
}

// UpdateConsumption rewrites one consumption record.
func (s *Store) UpdateConsumption(ctx context.Context, id, equipmentID, sourceID int64, recordedAt time.Time, durationMinutes int64, energyKWh float64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE consumption SET equipment_id = ?, source_id = ?, recorded_at = ?, duration_minutes = ?, energy_kwh = ? WHERE id = ?`,
		equipmentID, sourceID, recordedAt.Format(timeLayout), durationMinutes, energyKWh, id)
	if err != nil {
		return fmt.Errorf("updating consumption: %w", err)
	}
	return requireRow(result)
}

// DeleteConsumption removes one consumption record.
func (s *Store) DeleteConsumption(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM consumption WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting consumption: %w", err)
	}
	return requireRow(result)
}

// AddSource inserts an energy source. The name is unique.
func (s *Store) AddSource(ctx context.Context, name string, costPerKWh float64, description string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (name, cost_per_kwh, description) VALUES (?, ?, ?)`,
		name, costPerKWh, nullable(description))
	if err != nil {
		return 0, fmt.Errorf("inserting source: %w", err)
	}
	return result.LastInsertId()
}

// UpdateSource rewrites one source.
func (s *Store) UpdateSource(ctx context.Context, id int64, name string, costPerKWh float64, description string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sources SET name = ?, cost_per_kwh = ?, description = ? WHERE id = ?`,
		name, costPerKWh, nullable(description), id)
	if err != nil {
		return fmt.Errorf("updating source: %w", err)
	}
	return requireRow(result)
}

// DeleteSource removes one source.
func (s *Store) DeleteSource(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	return requireRow(result)
}

// AddBuilding inserts a building.
func (s *Store) AddBuilding(ctx context.Context, name, location, buildingType string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO buildings (name, location, type) VALUES (?, ?, ?)`,
		name, nullable(location), nullable(buildingType))
	if err != nil {
		return 0, fmt.Errorf("inserting building: %w", err)
	}
	return result.LastInsertId()
}

// UpdateBuilding rewrites one building.
func (s *Store) UpdateBuilding(ctx context.Context, id int64, name, location, buildingType string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE buildings SET name = ?, location = ?, type = ? WHERE id = ?`,
		name, nullable(location), nullable(buildingType), id)
	if err != nil {
		return fmt.Errorf("updating building: %w", err)
	}
	return requireRow(result)
}

// DeleteBuilding removes one building.
func (s *Store) DeleteBuilding(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM buildings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting building: %w", err)
	}
	return requireRow(result)
}

// AddEquipmentType inserts an equipment type with its theoretical hourly rate.
func (s *Store) AddEquipmentType(ctx context.Context, name string, theoreticalKWhPerHour float64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO equipment_types (name, theoretical_kwh_per_hour) VALUES (?, ?)`,
		name, theoreticalKWhPerHour)
	if err != nil {
		return 0, fmt.Errorf("inserting equipment type: %w", err)
	}
	return result.LastInsertId()
}

// UpdateEquipmentType rewrites one equipment type.
func (s *Store) UpdateEquipmentType(ctx context.Context, id int64, name string, theoreticalKWhPerHour float64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE equipment_types SET name = ?, theoretical_kwh_per_hour = ? WHERE id = ?`,
		name, theoreticalKWhPerHour, id)
	if err != nil {
		return fmt.Errorf("updating equipment type: %w", err)
	}
	return requireRow(result)
}

// DeleteEquipmentType removes one equipment type.
func (s *Store) DeleteEquipmentType(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM equipment_types WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting equipment type: %w", err)
	}
	return requireRow(result)
}

// AddEquipment inserts an equipment row.
func (s *Store) AddEquipment(ctx context.Context, name string, ratedPowerWatts float64, typeID, buildingID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO equipment (name, rated_power_watts, type_id, building_id) VALUES (?, ?, ?, ?)`,
		name, ratedPowerWatts, typeID, buildingID)
	if err != nil {
		return 0, fmt.Errorf("inserting equipment: %w", err)
	}
	return result.LastInsertId()
}

// UpdateEquipment rewrites one equipment row.
func (s *Store) UpdateEquipment(ctx context.Context, id int64, name string, ratedPowerWatts float64, typeID, buildingID int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE equipment SET name = ?, rated_power_watts = ?, type_id = ?, building_id = ? WHERE id = ?`,
		name, ratedPowerWatts, typeID, buildingID, id)
	if err != nil {
		return fmt.Errorf("updating equipment: %w", err)
	}
	return requireRow(result)
}

// DeleteEquipment removes one equipment row.
func (s *Store) DeleteEquipment(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM equipment WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting equipment: %w", err)
	}
	return requireRow(result)
}

// AddOutage inserts an outage. A zero endTime records an ongoing outage.
func (s *Store) AddOutage(ctx context.Context, buildingID int64, startTime, endTime time.Time, cause string) (int64, error) {
	var end any
	if !endTime.IsZero() {
		end = endTime.Format(timeLayout)
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO outages (building_id, start_time, end_time, cause) VALUES (?, ?, ?, ?)`,
		buildingID, startTime.Format(timeLayout), end, nullable(cause))
	if err != nil {
		return 0, fmt.Errorf("inserting outage: %w", err)
	}
	return result.LastInsertId()
}

// CloseOutage records the end of an ongoing outage.
func (s *Store) CloseOutage(ctx context.Context, id int64, endTime time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE outages SET end_time = ? WHERE id = ?`, endTime.Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("closing outage: %w", err)
	}
	return requireRow(result)
}

// UpdateOutage rewrites one outage.
func (s *Store) UpdateOutage(ctx context.Context, id, buildingID int64, startTime, endTime time.Time, cause string) error {
	var end any
	if !endTime.IsZero() {
		end = endTime.Format(timeLayout)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE outages SET building_id = ?, start_time = ?, end_time = ?, cause = ? WHERE id = ?`,
		buildingID, startTime.Format(timeLayout), end, nullable(cause), id)
	if err != nil {
		return fmt.Errorf("updating outage: %w", err)
	}
	return requireRow(result)
}

// DeleteOutage removes one outage.
func (s *Store) DeleteOutage(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM outages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting outage: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return energy.ErrNotFound
	}
	return nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

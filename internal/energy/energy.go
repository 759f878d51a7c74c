package energy

import "time"

// ConsumptionRecord is one measured interval of energy use by one piece of
// equipment drawing from one source. Rows come back from the store already
// joined with the human-readable names the dashboard displays.
type ConsumptionRecord struct {
	ID              int64     `db:"id" json:"id"`
	EquipmentID     int64     `db:"equipment_id" json:"equipment_id"`
	SourceID        int64     `db:"source_id" json:"source_id"`
	Timestamp       time.Time `db:"recorded_at" json:"recorded_at"`
	DurationMinutes int64     `db:"duration_minutes" json:"duration_minutes"`
	EnergyKWh       float64   `db:"energy_kwh" json:"energy_kwh"`
	SourceName      string    `db:"source_name" json:"source_name"`
	EquipmentName   string    `db:"equipment_name" json:"equipment_name"`
	BuildingName    string    `db:"building_name" json:"building_name"`
}

// UsageHours converts the recorded duration to hours.
func (r ConsumptionRecord) UsageHours() float64 {
	return float64(r.DurationMinutes) / 60.0
}

// Source is a billable energy source (grid feed or backup generator).
type Source struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	CostPerKWh  float64 `db:"cost_per_kwh" json:"cost_per_kwh"`
	Description string  `db:"description" json:"description"`
}

// EquipmentType carries the theoretical draw model: the rated energy use per
// hour of operation, used as the efficiency baseline.
type EquipmentType struct {
	ID                    int64   `db:"id" json:"id"`
	Name                  string  `db:"name" json:"name"`
	TheoreticalKWhPerHour float64 `db:"theoretical_kwh_per_hour" json:"theoretical_kwh_per_hour"`
}

// Equipment is a metered device installed in a building.
type Equipment struct {
	ID              int64   `db:"id" json:"id"`
	Name            string  `db:"name" json:"name"`
	RatedPowerWatts float64 `db:"rated_power_watts" json:"rated_power_watts"`
	TypeID          int64   `db:"type_id" json:"type_id"`
	BuildingID      int64   `db:"building_id" json:"building_id"`
}

// EquipmentInfo is an equipment row joined with its type's theoretical rate
// and the names the analytics layer reports on, so consumers never resolve
// foreign keys themselves.
type EquipmentInfo struct {
	ID                    int64   `db:"id" json:"id"`
	Name                  string  `db:"name" json:"name"`
	RatedPowerWatts       float64 `db:"rated_power_watts" json:"rated_power_watts"`
	TypeID                int64   `db:"type_id" json:"type_id"`
	TypeName              string  `db:"type_name" json:"type_name"`
	TheoreticalKWhPerHour float64 `db:"theoretical_kwh_per_hour" json:"theoretical_kwh_per_hour"`
	BuildingName          string  `db:"building_name" json:"building_name"`
}

// Building groups equipment and outage events.
type Building struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Location string `db:"location" json:"location"`
	Type     string `db:"type" json:"type"`
}

// Outage is a period during which grid power was unavailable at a building.
// A zero EndTime means the outage is still ongoing.
type Outage struct {
	ID           int64     `db:"id" json:"id"`
	BuildingID   int64     `db:"building_id" json:"building_id"`
	BuildingName string    `db:"building_name" json:"building_name"`
	StartTime    time.Time `db:"start_time" json:"start_time"`
	EndTime      time.Time `db:"end_time" json:"end_time,omitempty"`
	Cause        string    `db:"cause" json:"cause"`
}

// Ongoing reports whether the outage has no recorded end yet.
func (o Outage) Ongoing() bool { return o.EndTime.IsZero() }

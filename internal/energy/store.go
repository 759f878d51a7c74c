package energy

import "context"

// Period selects the calendar bucketing for aggregations.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Store is the read contract the analytics engines depend on. Every call
// returns a full snapshot of the rows in scope, already joined with the
// referenced names. Engines refetch on every invocation and hold no cache.
type Store interface {
	AllConsumption(ctx context.Context) ([]ConsumptionRecord, error)
	ConsumptionBySource(ctx context.Context, sourceName string) ([]ConsumptionRecord, error)
	ConsumptionByEquipment(ctx context.Context, equipmentID int64) ([]ConsumptionRecord, error)

	AllOutages(ctx context.Context) ([]Outage, error)

	EquipmentDetails(ctx context.Context, equipmentID int64) (*EquipmentInfo, error)
	AllEquipment(ctx context.Context) ([]EquipmentInfo, error)

	TypeDetails(ctx context.Context, typeID int64) (*EquipmentType, error)
	AllTypes(ctx context.Context) ([]EquipmentType, error)

	// CostPerKWh returns the configured unit cost for a source by name.
	// ok is false when the source does not exist.
	CostPerKWh(ctx context.Context, sourceName string) (cost float64, ok bool, err error)

	AllSources(ctx context.Context) ([]Source, error)
	AllBuildings(ctx context.Context) ([]Building, error)
}

package cost

import "errors"

var (
	// ErrNonPositiveDuration is returned when a simulation duration is zero or negative.
	ErrNonPositiveDuration = errors.New("cost: simulation duration must be positive")
	// ErrGeneratorCostNotConfigured is returned when the generator source has no unit cost.
	ErrGeneratorCostNotConfigured = errors.New("cost: generator cost per kWh not configured")
	// ErrNoConsumptionData is returned when no historical consumption exists to average.
	ErrNoConsumptionData = errors.New("cost: no consumption data available")
	// ErrZeroRecordedDuration is returned when recorded history has zero total duration.
	ErrZeroRecordedDuration = errors.New("cost: total recorded duration is zero")
	// ErrNilStore is returned when constructing an engine without a store.
	ErrNilStore = errors.New("cost: nil store")
)

package cost

import (
	"context"
	"time"

	"kilowatch/internal/energy"
	"kilowatch/internal/observability/metrics"
)

const (
	// DefaultGridSource is the national grid provider.
	DefaultGridSource = "JIRAMA"
	// DefaultGeneratorSource is the backup diesel generator.
	DefaultGeneratorSource = "Groupe électrogène"
)

// Engine converts energy quantities into monetary cost using per-source unit
// prices. It is stateless: every call fetches a fresh snapshot from the store.
type Engine struct {
	store           energy.Store
	gridSource      string
	generatorSource string
}

// Option configures the engine.
type Option func(*Engine)

// WithGridSource overrides the grid source name.
func WithGridSource(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.gridSource = name
		}
	}
}

// WithGeneratorSource overrides the generator source name.
func WithGeneratorSource(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.generatorSource = name
		}
	}
}

// NewEngine constructs a cost engine.
func NewEngine(store energy.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	e := &Engine{
		store:           store,
		gridSource:      DefaultGridSource,
		generatorSource: DefaultGeneratorSource,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// GridSource returns the configured grid source name.
func (e *Engine) GridSource() string { return e.gridSource }

// GeneratorSource returns the configured generator source name.
func (e *Engine) GeneratorSource() string { return e.generatorSource }

// TotalCostForSource sums the billed cost of every consumption record drawn
// from the named source. An unknown source yields 0 rather than an error:
// there is no billable cost to report.
func (e *Engine) TotalCostForSource(ctx context.Context, sourceName string) (float64, error) {
	unitCost, ok, err := e.store.CostPerKWh(ctx, sourceName)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	records, err := e.store.ConsumptionBySource(ctx, sourceName)
	if err != nil {
		return 0, err
	}

	var totalKWh float64
	for _, record := range records {
		totalKWh += record.EnergyKWh
	}
	return totalKWh * unitCost, nil
}

// Comparison holds the grid-versus-generator cost comparison. A positive
// difference means the generator is the more expensive source.
type Comparison struct {
	GridSource      string  `json:"grid_source"`
	GridCost        float64 `json:"grid_cost"`
	GeneratorSource string  `json:"generator_source"`
	GeneratorCost   float64 `json:"generator_cost"`
	Difference      float64 `json:"difference"`
}

// Map returns the comparison keyed by source name, plus a "difference" entry,
// the shape the dashboard charts consume.
func (c Comparison) Map() map[string]float64 {
	return map[string]float64{
		c.GridSource:      c.GridCost,
		c.GeneratorSource: c.GeneratorCost,
		"difference":      c.Difference,
	}
}

// CompareSources computes total cost for the grid and generator sources.
func (e *Engine) CompareSources(ctx context.Context) (Comparison, error) {
	gridCost, err := e.TotalCostForSource(ctx, e.gridSource)
	if err != nil {
		return Comparison{}, err
	}
	generatorCost, err := e.TotalCostForSource(ctx, e.generatorSource)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{
		GridSource:      e.gridSource,
		GridCost:        gridCost,
		GeneratorSource: e.generatorSource,
		GeneratorCost:   generatorCost,
		Difference:      generatorCost - gridCost,
	}, nil
}

// CostByPeriod buckets the billed cost of every priced consumption record by
// calendar day ("2006-01-02" keys) or month ("2006-01" keys). Records whose
// source has no configured cost are skipped.
func (e *Engine) CostByPeriod(ctx context.Context, period energy.Period) (map[string]float64, error) {
	var layout string
	switch period {
	case energy.PeriodDay:
		layout = "2006-01-02"
	case energy.PeriodMonth:
		layout = "2006-01"
	default:
		return nil, energy.ErrInvalidPeriod
	}

	records, err := e.store.AllConsumption(ctx)
	if err != nil {
		return nil, err
	}

	type priceEntry struct {
		cost float64
		ok   bool
	}
	prices := make(map[string]priceEntry)
	buckets := make(map[string]float64)

	for _, record := range records {
		entry, seen := prices[record.SourceName]
		if !seen {
			unitCost, ok, err := e.store.CostPerKWh(ctx, record.SourceName)
			if err != nil {
				return nil, err
			}
			entry = priceEntry{cost: unitCost, ok: ok}
			prices[record.SourceName] = entry
		}
		if !entry.ok {
			continue
		}
		key := record.Timestamp.Format(layout)
		buckets[key] += record.EnergyKWh * entry.cost
	}
	return buckets, nil
}

// SimulateOutageImpact estimates the extra cost of running the backup
// generator for durationHours, using the average consumption rate over the
// full recorded history. The start time describes the hypothetical window but
// does not narrow the historical average.
func (e *Engine) SimulateOutageImpact(ctx context.Context, start time.Time, durationHours float64) (estimated float64, err error) {
	began := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveSimulation(result, time.Since(began))
	}()

	_ = start

	if durationHours <= 0 {
		return 0, ErrNonPositiveDuration
	}

	generatorCost, ok, err := e.store.CostPerKWh(ctx, e.generatorSource)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrGeneratorCostNotConfigured
	}

	records, err := e.store.AllConsumption(ctx)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, ErrNoConsumptionData
	}

	var totalKWh float64
	var totalMinutes int64
	for _, record := range records {
		totalKWh += record.EnergyKWh
		totalMinutes += record.DurationMinutes
	}
	totalHours := float64(totalMinutes) / 60.0
	if totalHours == 0 {
		return 0, ErrZeroRecordedDuration
	}

	averageKWhPerHour := totalKWh / totalHours
	return averageKWhPerHour * durationHours * generatorCost, nil
}

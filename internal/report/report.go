// Package report assembles and exports the energy dashboard summary report.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"kilowatch/internal/analysis/cost"
	"kilowatch/internal/analysis/efficiency"
	"kilowatch/internal/analysis/stats"
	"kilowatch/internal/energy"
)

// PeriodCost is one calendar bucket of the cost-by-period breakdown,
// flattened for rendering.
type PeriodCost struct {
	Period string  `json:"period"`
	Cost   float64 `json:"cost"`
}

// Report is the full dashboard summary exported to XLSX and PDF.
type Report struct {
	GeneratedAt   time.Time                `json:"generated_at"`
	Stats         *stats.Summary           `json:"stats,omitempty"`
	Comparison    cost.Comparison          `json:"comparison"`
	MonthlyCosts  []PeriodCost             `json:"monthly_costs"`
	TopConsumers  []efficiency.ConsumerRank `json:"top_consumers"`
	WasteReports  []efficiency.EquipmentReport `json:"waste_reports"`
	OutageAlerts  []efficiency.OutageAlert `json:"outage_alerts"`
}

// Builder assembles a Report from the analysis engines.
type Builder struct {
	engine   *cost.Engine
	detector *stats.Detector
	analyzer *efficiency.Analyzer
	clock    energy.Clock
}

// NewBuilder constructs a report builder.
func NewBuilder(engine *cost.Engine, detector *stats.Detector, analyzer *efficiency.Analyzer, clock energy.Clock) (*Builder, error) {
	if engine == nil {
		return nil, fmt.Errorf("report: nil cost engine")
	}
	if detector == nil {
		return nil, fmt.Errorf("report: nil detector")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("report: nil analyzer")
	}
	if clock == nil {
		clock = energy.SystemClock{}
	}
	return &Builder{engine: engine, detector: detector, analyzer: analyzer, clock: clock}, nil
}

// Build runs every engine and assembles the report.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	report := &Report{GeneratedAt: b.clock.Now()}

	summary, err := b.detector.GlobalStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("building stats: %w", err)
	}
	report.Stats = summary

	comparison, err := b.engine.CompareSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("building comparison: %w", err)
	}
	report.Comparison = comparison

	monthly, err := b.engine.CostByPeriod(ctx, energy.PeriodMonth)
	if err != nil {
		return nil, fmt.Errorf("building monthly costs: %w", err)
	}
	report.MonthlyCosts = sortPeriodCosts(monthly)

	consumers, err := b.analyzer.TopEnergyConsumers(ctx, efficiency.DefaultTopConsumers)
	if err != nil {
		return nil, fmt.Errorf("building top consumers: %w", err)
	}
	report.TopConsumers = consumers

	wasteful, err := b.analyzer.DetectWaste(ctx, efficiency.DefaultWasteThresholdPct)
	if err != nil {
		return nil, fmt.Errorf("building waste reports: %w", err)
	}
	report.WasteReports = wasteful

	outageAlerts, err := b.analyzer.ConsumptionDuringOutages(ctx)
	if err != nil {
		return nil, fmt.Errorf("building outage alerts: %w", err)
	}
	report.OutageAlerts = outageAlerts

	return report, nil
}

func sortPeriodCosts(byPeriod map[string]float64) []PeriodCost {
	costs := make([]PeriodCost, 0, len(byPeriod))
	for period, amount := range byPeriod {
		costs = append(costs, PeriodCost{Period: period, Cost: amount})
	}
	sort.Slice(costs, func(i, j int) bool { return costs[i].Period < costs[j].Period })
	return costs
}

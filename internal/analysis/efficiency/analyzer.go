package efficiency

import (
	"context"
	"errors"
	"sort"
	"time"

	"kilowatch/internal/energy"
	"kilowatch/internal/observability/metrics"
)

var (
	// ErrNilStore is returned when constructing an analyzer without a store.
	ErrNilStore = errors.New("efficiency: nil store")
)

const (
	// DefaultTopConsumers is the default ranking size.
	DefaultTopConsumers = 5
	// DefaultWasteThresholdPct flags equipment whose real draw exceeds the
	// theoretical model by more than this percentage.
	DefaultWasteThresholdPct = 20.0
)

// EquipmentReport compares an equipment's measured consumption to the
// theoretical draw of its type over the observed usage duration. A positive
// deviation means real usage exceeds the model (potential waste).
type EquipmentReport struct {
	EquipmentID    int64   `json:"equipment_id"`
	EquipmentName  string  `json:"equipment_name"`
	BuildingName   string  `json:"building_name"`
	ActualKWh      float64 `json:"actual_kwh"`
	TheoreticalKWh float64 `json:"theoretical_kwh"`
	DeviationKWh   float64 `json:"deviation_kwh"`
	DeviationPct   float64 `json:"deviation_pct"`
}

// ConsumerRank is one entry of the top-consumers ranking.
type ConsumerRank struct {
	EquipmentID   int64   `json:"equipment_id"`
	EquipmentName string  `json:"equipment_name"`
	BuildingName  string  `json:"building_name"`
	TotalKWh      float64 `json:"total_kwh"`
}

// TypeReport aggregates real consumption across all equipment of a type and
// relates the average hourly draw to the rated theoretical rate. Values above
// 100% mean the type draws more than rated on average.
type TypeReport struct {
	TypeID                int64   `json:"type_id"`
	TypeName              string  `json:"type_name"`
	TheoreticalKWhPerHour float64 `json:"theoretical_kwh_per_hour"`
	RealAvgKWhPerHour     float64 `json:"real_avg_kwh_per_hour"`
	EfficiencyPct         float64 `json:"efficiency_pct"`
}

// OutageAlert flags a consumption reading recorded while grid power was out
// at some building.
type OutageAlert struct {
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
	EquipmentID   int64     `json:"equipment_id"`
	EquipmentName string    `json:"equipment_name"`
	BuildingName  string    `json:"building_name"`
	EnergyKWh     float64   `json:"energy_kwh"`
	ConsumptionID int64     `json:"consumption_id"`
	OutageID      int64     `json:"outage_id"`
	OutageStart   time.Time `json:"outage_start"`
	OutageEnd     time.Time `json:"outage_end,omitempty"`
	OutageOngoing bool      `json:"outage_ongoing"`
}

// Analyzer models expected consumption from equipment specifications and
// usage duration, and compares it to measured consumption. Stateless: every
// call recomputes from a fresh store snapshot.
type Analyzer struct {
	store energy.Store
	clock energy.Clock
}

// NewAnalyzer constructs an analyzer. A nil clock falls back to SystemClock.
func NewAnalyzer(store energy.Store, clock energy.Clock) (*Analyzer, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if clock == nil {
		clock = energy.SystemClock{}
	}
	return &Analyzer{store: store, clock: clock}, nil
}

// EquipmentEfficiency reports actual versus theoretical consumption for one
// equipment. It returns nil for unknown equipment and zeroed metrics for
// equipment with no consumption history.
func (a *Analyzer) EquipmentEfficiency(ctx context.Context, equipmentID int64) (*EquipmentReport, error) {
	info, err := a.store.EquipmentDetails(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}

	records, err := a.store.ConsumptionByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	report := &EquipmentReport{
		EquipmentID:   info.ID,
		EquipmentName: info.Name,
		BuildingName:  info.BuildingName,
	}
	if len(records) == 0 {
		return report, nil
	}

	var usageHours float64
	for _, record := range records {
		report.ActualKWh += record.EnergyKWh
		usageHours += record.UsageHours()
	}
	report.TheoreticalKWh = info.TheoreticalKWhPerHour * usageHours
	report.DeviationKWh = report.ActualKWh - report.TheoreticalKWh
	if report.TheoreticalKWh != 0 {
		report.DeviationPct = report.DeviationKWh / report.TheoreticalKWh * 100
	}
	return report, nil
}

// TopEnergyConsumers ranks equipment by total measured energy, descending,
// truncated to n (default 5). Equipment without consumption never appears.
func (a *Analyzer) TopEnergyConsumers(ctx context.Context, n int) ([]ConsumerRank, error) {
	if n <= 0 {
		n = DefaultTopConsumers
	}

	records, err := a.store.AllConsumption(ctx)
	if err != nil {
		return nil, err
	}

	totals := make(map[int64]float64)
	for _, record := range records {
		totals[record.EquipmentID] += record.EnergyKWh
	}

	ranking := make([]ConsumerRank, 0, len(totals))
	for equipmentID, totalKWh := range totals {
		info, err := a.store.EquipmentDetails(ctx, equipmentID)
		if err != nil {
			return nil, err
		}
		if info == nil {
			continue
		}
		ranking = append(ranking, ConsumerRank{
			EquipmentID:   info.ID,
			EquipmentName: info.Name,
			BuildingName:  info.BuildingName,
			TotalKWh:      totalKWh,
		})
	}

	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].TotalKWh != ranking[j].TotalKWh {
			return ranking[i].TotalKWh > ranking[j].TotalKWh
		}
		return ranking[i].EquipmentName < ranking[j].EquipmentName
	})
	if len(ranking) > n {
		ranking = ranking[:n]
	}
	return ranking, nil
}

// KWhPerUsageHour returns average energy per hour of recorded operation for
// one equipment, 0 when there is no history or no recorded duration.
func (a *Analyzer) KWhPerUsageHour(ctx context.Context, equipmentID int64) (float64, error) {
	records, err := a.store.ConsumptionByEquipment(ctx, equipmentID)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	var totalKWh, usageHours float64
	for _, record := range records {
		totalKWh += record.EnergyKWh
		usageHours += record.UsageHours()
	}
	if usageHours == 0 {
		return 0, nil
	}
	return totalKWh / usageHours, nil
}

// TypeEfficiency relates the average hourly draw of every equipment of a type
// to the type's rated theoretical rate. It returns nil for unknown types and
// zeroed real-consumption metrics for types with no equipment. When the rated
// rate is 0 the ratio is reported as 0 instead of being computed.
func (a *Analyzer) TypeEfficiency(ctx context.Context, typeID int64) (*TypeReport, error) {
	typeDetails, err := a.store.TypeDetails(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if typeDetails == nil {
		return nil, nil
	}

	report := &TypeReport{
		TypeID:                typeDetails.ID,
		TypeName:              typeDetails.Name,
		TheoreticalKWhPerHour: typeDetails.TheoreticalKWhPerHour,
	}

	equipment, err := a.store.AllEquipment(ctx)
	if err != nil {
		return nil, err
	}

	var totalKWh, usageHours float64
	var hasEquipment bool
	for _, info := range equipment {
		if info.TypeID != typeID {
			continue
		}
		hasEquipment = true
		records, err := a.store.ConsumptionByEquipment(ctx, info.ID)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			totalKWh += record.EnergyKWh
			usageHours += record.UsageHours()
		}
	}
	if !hasEquipment {
		return report, nil
	}

	if usageHours != 0 {
		report.RealAvgKWhPerHour = totalKWh / usageHours
	}
	if report.TheoreticalKWhPerHour != 0 {
		report.EfficiencyPct = report.RealAvgKWhPerHour / report.TheoreticalKWhPerHour * 100
	}
	return report, nil
}

// DetectWaste returns the equipment whose deviation percentage strictly
// exceeds thresholdPct (default 20). Equipment with a zero theoretical
// baseline never qualifies, its deviation percentage being defined as 0.
func (a *Analyzer) DetectWaste(ctx context.Context, thresholdPct float64) (wasteful []EquipmentReport, err error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveAnalysis("detect_waste", result, time.Since(start))
	}()

	if thresholdPct <= 0 {
		thresholdPct = DefaultWasteThresholdPct
	}

	equipment, err := a.store.AllEquipment(ctx)
	if err != nil {
		return nil, err
	}

	wasteful = []EquipmentReport{}
	for _, info := range equipment {
		report, err := a.EquipmentEfficiency(ctx, info.ID)
		if err != nil {
			return nil, err
		}
		if report != nil && report.DeviationPct > thresholdPct {
			wasteful = append(wasteful, *report)
		}
	}
	return wasteful, nil
}

// ConsumptionDuringOutages cross-references every consumption reading against
// every outage window and flags readings that fall inside one. Ongoing
// outages are treated as ending now. The scan is O(outages x events), which
// is acceptable at single-institution data volumes.
func (a *Analyzer) ConsumptionDuringOutages(ctx context.Context) (alerts []OutageAlert, err error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveAnalysis("outage_consumption", result, time.Since(start))
	}()

	outages, err := a.store.AllOutages(ctx)
	if err != nil {
		return nil, err
	}
	records, err := a.store.AllConsumption(ctx)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	alerts = []OutageAlert{}
	for _, outage := range outages {
		end := outage.EndTime
		if outage.Ongoing() {
			end = now
		}
		for _, record := range records {
			if record.Timestamp.Before(outage.StartTime) || record.Timestamp.After(end) {
				continue
			}
			alerts = append(alerts, OutageAlert{
				Date:          record.Timestamp,
				Description:   outageAlertDescription(record, outage),
				EquipmentID:   record.EquipmentID,
				EquipmentName: record.EquipmentName,
				BuildingName:  outage.BuildingName,
				EnergyKWh:     record.EnergyKWh,
				ConsumptionID: record.ID,
				OutageID:      outage.ID,
				OutageStart:   outage.StartTime,
				OutageEnd:     outage.EndTime,
				OutageOngoing: outage.Ongoing(),
			})
		}
	}
	return alerts, nil
}

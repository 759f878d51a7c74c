package stats

import (
	"context"
	"errors"
	"math"
	"time"

	"kilowatch/internal/energy"
)

// ErrNilStore is returned when constructing a detector without a store.
var ErrNilStore = errors.New("stats: nil store")

// DefaultAnomalyFactor is the stddev multiple above the mean that flags a reading.
const DefaultAnomalyFactor = 2.0

// Summary holds descriptive statistics over all recorded energy readings.
type Summary struct {
	TotalKWh  float64 `json:"total_kwh"`
	MeanKWh   float64 `json:"mean_kwh"`
	MaxKWh    float64 `json:"max_kwh"`
	MinKWh    float64 `json:"min_kwh"`
	StdDevKWh float64 `json:"stddev_kwh"`
}

// Detector flags unusually high consumption readings against the population
// mean and standard deviation of the full history.
type Detector struct {
	store energy.Store
}

// NewDetector constructs a detector.
func NewDetector(store energy.Store) (*Detector, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Detector{store: store}, nil
}

// GlobalStats computes descriptive statistics over every reading's energy.
// It returns nil when no data exists.
func (d *Detector) GlobalStats(ctx context.Context) (*Summary, error) {
	records, err := d.store.AllConsumption(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	summary := &Summary{
		MaxKWh: records[0].EnergyKWh,
		MinKWh: records[0].EnergyKWh,
	}
	for _, record := range records {
		summary.TotalKWh += record.EnergyKWh
		if record.EnergyKWh > summary.MaxKWh {
			summary.MaxKWh = record.EnergyKWh
		}
		if record.EnergyKWh < summary.MinKWh {
			summary.MinKWh = record.EnergyKWh
		}
	}
	summary.MeanKWh = summary.TotalKWh / float64(len(records))
	summary.StdDevKWh = populationStdDev(records, summary.MeanKWh)
	return summary, nil
}

// DetectAnomalies returns every reading whose energy exceeds
// mean + factor*stddev. Only excess draw is flagged: in this domain a reading
// below the mean is not a risk signal. A zero-variance history yields no
// anomalies. A non-positive factor falls back to DefaultAnomalyFactor.
func (d *Detector) DetectAnomalies(ctx context.Context, factor float64) ([]energy.ConsumptionRecord, error) {
	if factor <= 0 {
		factor = DefaultAnomalyFactor
	}

	records, err := d.store.AllConsumption(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []energy.ConsumptionRecord{}, nil
	}

	var total float64
	for _, record := range records {
		total += record.EnergyKWh
	}
	mean := total / float64(len(records))
	stddev := populationStdDev(records, mean)
	if stddev == 0 {
		return []energy.ConsumptionRecord{}, nil
	}

	threshold := mean + factor*stddev
	anomalies := []energy.ConsumptionRecord{}
	for _, record := range records {
		if record.EnergyKWh > threshold {
			anomalies = append(anomalies, record)
		}
	}
	return anomalies, nil
}

// SumBySource returns the total recorded energy (not cost) for a source.
// Unknown sources sum to 0.
func (d *Detector) SumBySource(ctx context.Context, sourceName string) (float64, error) {
	records, err := d.store.ConsumptionBySource(ctx, sourceName)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, record := range records {
		total += record.EnergyKWh
	}
	return total, nil
}

// Point is a timestamped energy quantity fed to AggregateByPeriod.
type Point struct {
	Timestamp time.Time
	EnergyKWh float64
}

// AggregateByPeriod sums caller-supplied points into day, week or month
// buckets. Week buckets key on the Monday that starts the ISO week. Keys use
// the "2006-01-02" layout for day and week, "2006-01" for month.
func AggregateByPeriod(points []Point, period energy.Period) (map[string]float64, error) {
	switch period {
	case energy.PeriodDay, energy.PeriodWeek, energy.PeriodMonth:
	default:
		return nil, energy.ErrInvalidPeriod
	}

	buckets := make(map[string]float64)
	for _, point := range points {
		var key string
		switch period {
		case energy.PeriodDay:
			key = point.Timestamp.Format("2006-01-02")
		case energy.PeriodWeek:
			key = mondayOfWeek(point.Timestamp).Format("2006-01-02")
		case energy.PeriodMonth:
			key = point.Timestamp.Format("2006-01")
		}
		buckets[key] += point.EnergyKWh
	}
	return buckets, nil
}

func mondayOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	// time.Weekday counts Sunday as 0; shift so Monday is the week start.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func populationStdDev(records []energy.ConsumptionRecord, mean float64) float64 {
	if len(records) == 0 {
		return 0
	}
	var sumSquares float64
	for _, record := range records {
		diff := record.EnergyKWh - mean
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(records)))
}

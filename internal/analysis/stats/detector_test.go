package stats

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"kilowatch/internal/energy"
	"kilowatch/internal/energy/memory"
)

func storeWithReadings(t *testing.T, values ...float64) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	building := store.AddBuilding(energy.Building{Name: "Campus Nord"})
	equipmentType := store.AddType(energy.EquipmentType{Name: "Informatique", TheoreticalKWhPerHour: 1.2})
	source := store.AddSource(energy.Source{Name: "JIRAMA", CostPerKWh: 0.20})
	equipment := store.AddEquipment(energy.Equipment{Name: "Salle Info 1", TypeID: equipmentType.ID, BuildingID: building.ID})

	base := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	for i, value := range values {
		store.AddConsumption(energy.ConsumptionRecord{
			EquipmentID:     equipment.ID,
			SourceID:        source.ID,
			Timestamp:       base.Add(time.Duration(i) * time.Hour),
			DurationMinutes: 60,
			EnergyKWh:       value,
		})
	}
	return store
}

func TestNewDetectorNilStore(t *testing.T) {
	if _, err := NewDetector(nil); !errors.Is(err, ErrNilStore) {
		t.Fatalf("expected ErrNilStore, got %v", err)
	}
}

func TestGlobalStats(t *testing.T) {
	detector, err := NewDetector(storeWithReadings(t, 1, 1, 1, 9))
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}

	summary, err := detector.GlobalStats(context.Background())
	if err != nil {
		t.Fatalf("GlobalStats: %v", err)
	}
	if summary == nil {
		t.Fatal("expected a summary")
	}
	if summary.TotalKWh != 12 {
		t.Errorf("total = %.2f, want 12", summary.TotalKWh)
	}
	if summary.MeanKWh != 3 {
		t.Errorf("mean = %.2f, want 3", summary.MeanKWh)
	}
	if summary.MaxKWh != 9 || summary.MinKWh != 1 {
		t.Errorf("max/min = %.2f/%.2f, want 9/1", summary.MaxKWh, summary.MinKWh)
	}
	// Population stddev of 1,1,1,9: sqrt((4+4+4+36)/4) = sqrt(12).
	if math.Abs(summary.StdDevKWh-math.Sqrt(12)) > 1e-9 {
		t.Errorf("stddev = %.6f, want %.6f", summary.StdDevKWh, math.Sqrt(12))
	}
}

func TestGlobalStatsEmpty(t *testing.T) {
	detector, err := NewDetector(memory.NewStore())
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	summary, err := detector.GlobalStats(context.Background())
	if err != nil {
		t.Fatalf("GlobalStats: %v", err)
	}
	if summary != nil {
		t.Fatalf("expected nil summary for empty history, got %+v", summary)
	}
}

func TestDetectAnomalies(t *testing.T) {
	detector, err := NewDetector(storeWithReadings(t, 1, 1, 1, 9))
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}

	// mean 3, stddev sqrt(12) ~ 3.46; threshold at factor 1 is ~6.46.
	anomalies, err := detector.DetectAnomalies(context.Background(), 1)
	if err != nil {
		t.Fatalf("DetectAnomalies: %v", err)
	}
	if len(anomalies) != 1 {
		t.Fatalf("got %d anomalies, want 1: %+v", len(anomalies), anomalies)
	}
	if anomalies[0].EnergyKWh != 9 {
		t.Errorf("anomaly energy = %.2f, want 9", anomalies[0].EnergyKWh)
	}

	// Factor 2: threshold ~9.93, nothing qualifies.
	anomalies, err = detector.DetectAnomalies(context.Background(), 2)
	if err != nil {
		t.Fatalf("DetectAnomalies: %v", err)
	}
	if len(anomalies) != 0 {
		t.Fatalf("got %d anomalies at factor 2, want 0", len(anomalies))
	}
}

func TestDetectAnomaliesZeroVariance(t *testing.T) {
	detector, err := NewDetector(storeWithReadings(t, 2, 2, 2))
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	anomalies, err := detector.DetectAnomalies(context.Background(), 2)
	if err != nil {
		t.Fatalf("DetectAnomalies: %v", err)
	}
	if anomalies == nil || len(anomalies) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", anomalies)
	}
}

func TestDetectAnomaliesEmptyHistory(t *testing.T) {
	detector, err := NewDetector(memory.NewStore())
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	anomalies, err := detector.DetectAnomalies(context.Background(), 2)
	if err != nil {
		t.Fatalf("DetectAnomalies: %v", err)
	}
	if anomalies == nil || len(anomalies) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", anomalies)
	}
}

func TestDetectAnomaliesDefaultFactor(t *testing.T) {
	// 10 baseline readings of 1 plus one of 12: mean ~2, stddev ~3.16, so the
	// default factor of 2 flags only the spike.
	values := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 12}
	detector, err := NewDetector(storeWithReadings(t, values...))
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	anomalies, err := detector.DetectAnomalies(context.Background(), 0)
	if err != nil {
		t.Fatalf("DetectAnomalies: %v", err)
	}
	if len(anomalies) != 1 || anomalies[0].EnergyKWh != 12 {
		t.Fatalf("default factor should flag only the spike, got %+v", anomalies)
	}
}

func TestSumBySource(t *testing.T) {
	store := storeWithReadings(t, 1.5, 2.5)
	detector, err := NewDetector(store)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}

	total, err := detector.SumBySource(context.Background(), "JIRAMA")
	if err != nil {
		t.Fatalf("SumBySource: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %.2f, want 4", total)
	}

	total, err = detector.SumBySource(context.Background(), "NonExistent")
	if err != nil {
		t.Fatalf("SumBySource: %v", err)
	}
	if total != 0 {
		t.Errorf("unknown source total = %.2f, want 0", total)
	}
}

func TestAggregateByPeriod(t *testing.T) {
	points := []Point{
		{Timestamp: time.Date(2025, 1, 10, 7, 0, 0, 0, time.UTC), EnergyKWh: 1.1}, // Friday
		{Timestamp: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), EnergyKWh: 1.4},
		{Timestamp: time.Date(2025, 1, 11, 8, 0, 0, 0, time.UTC), EnergyKWh: 1.0}, // Saturday
		{Timestamp: time.Date(2025, 1, 13, 8, 0, 0, 0, time.UTC), EnergyKWh: 2.0}, // next Monday
		{Timestamp: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC), EnergyKWh: 3.0},
	}

	byDay, err := AggregateByPeriod(points, energy.PeriodDay)
	if err != nil {
		t.Fatalf("AggregateByPeriod(day): %v", err)
	}
	if byDay["2025-01-10"] != 2.5 || byDay["2025-01-11"] != 1.0 {
		t.Errorf("day buckets wrong: %v", byDay)
	}

	byWeek, err := AggregateByPeriod(points, energy.PeriodWeek)
	if err != nil {
		t.Fatalf("AggregateByPeriod(week): %v", err)
	}
	// Jan 10-11 2025 belong to the week starting Monday Jan 6.
	if byWeek["2025-01-06"] != 3.5 {
		t.Errorf("week bucket 2025-01-06 = %.2f, want 3.5", byWeek["2025-01-06"])
	}
	if byWeek["2025-01-13"] != 2.0 {
		t.Errorf("week bucket 2025-01-13 = %.2f, want 2.0", byWeek["2025-01-13"])
	}

	byMonth, err := AggregateByPeriod(points, energy.PeriodMonth)
	if err != nil {
		t.Fatalf("AggregateByPeriod(month): %v", err)
	}
	if byMonth["2025-01"] != 5.5 || byMonth["2025-02"] != 3.0 {
		t.Errorf("month buckets wrong: %v", byMonth)
	}

	if _, err := AggregateByPeriod(points, energy.Period("year")); !errors.Is(err, energy.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

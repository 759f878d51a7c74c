package efficiency

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"kilowatch/internal/energy"
	"kilowatch/internal/energy/memory"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type seedIDs struct {
	campus        int64
	salleInfo     int64
	amphi         int64
	climCentrale  int64
	bloc          int64
	informatique  int64
	eclairage     int64
	climatisation int64
	laboratoire   int64
}

func seedStore(t *testing.T) (*memory.Store, seedIDs) {
	t.Helper()
	store := memory.NewStore()

	campus := store.AddBuilding(energy.Building{Name: "Campus Nord", Location: "Antananarivo", Type: "université"})
	hopital := store.AddBuilding(energy.Building{Name: "Hôpital Central", Location: "Antananarivo", Type: "hôpital"})

	informatique := store.AddType(energy.EquipmentType{Name: "Informatique", TheoreticalKWhPerHour: 1.2})
	eclairage := store.AddType(energy.EquipmentType{Name: "Éclairage", TheoreticalKWhPerHour: 0.5})
	climatisation := store.AddType(energy.EquipmentType{Name: "Climatisation", TheoreticalKWhPerHour: 3.0})
	laboratoire := store.AddType(energy.EquipmentType{Name: "Laboratoire", TheoreticalKWhPerHour: 2.5})

	jirama := store.AddSource(energy.Source{Name: "JIRAMA", CostPerKWh: 0.20})
	groupe := store.AddSource(energy.Source{Name: "Groupe électrogène", CostPerKWh: 0.45})

	salleInfo := store.AddEquipment(energy.Equipment{Name: "Salle Info 1", TypeID: informatique.ID, BuildingID: campus.ID})
	amphi := store.AddEquipment(energy.Equipment{Name: "Amphi A", TypeID: eclairage.ID, BuildingID: campus.ID})
	climCentrale := store.AddEquipment(energy.Equipment{Name: "Clim Centrale", TypeID: climatisation.ID, BuildingID: campus.ID})
	bloc := store.AddEquipment(energy.Equipment{Name: "Bloc opératoire", TypeID: laboratoire.ID, BuildingID: hopital.ID})
	store.AddEquipment(energy.Equipment{Name: "Salle Urgences", TypeID: eclairage.ID, BuildingID: hopital.ID})

	add := func(equipmentID, sourceID int64, at string, kwh float64) {
		t.Helper()
		ts, err := time.Parse("2006-01-02 15:04:05", at)
		if err != nil {
			t.Fatalf("parse %q: %v", at, err)
		}
		store.AddConsumption(energy.ConsumptionRecord{
			EquipmentID:     equipmentID,
			SourceID:        sourceID,
			Timestamp:       ts,
			DurationMinutes: 60,
			EnergyKWh:       kwh,
		})
	}

	add(salleInfo.ID, jirama.ID, "2025-01-10 07:00:00", 1.1)
	add(amphi.ID, jirama.ID, "2025-01-10 08:00:00", 0.6)
	add(climCentrale.ID, jirama.ID, "2025-01-10 08:30:00", 3.2)
	add(salleInfo.ID, groupe.ID, "2025-01-10 09:00:00", 1.4)
	add(amphi.ID, groupe.ID, "2025-01-10 09:15:00", 0.8)
	add(climCentrale.ID, groupe.ID, "2025-01-10 09:30:00", 3.9)
	add(climCentrale.ID, groupe.ID, "2025-01-10 10:00:00", 7.5)
	add(salleInfo.ID, jirama.ID, "2025-01-11 08:00:00", 1.0)
	add(amphi.ID, jirama.ID, "2025-01-11 08:15:00", 0.5)
	add(climCentrale.ID, jirama.ID, "2025-01-11 09:00:00", 3.1)
	add(salleInfo.ID, jirama.ID, "2025-01-12 08:00:00", 1.2)
	add(amphi.ID, jirama.ID, "2025-01-12 08:30:00", 0.6)
	add(climCentrale.ID, jirama.ID, "2025-01-12 09:00:00", 3.3)

	return store, seedIDs{
		campus:        campus.ID,
		salleInfo:     salleInfo.ID,
		amphi:         amphi.ID,
		climCentrale:  climCentrale.ID,
		bloc:          bloc.ID,
		informatique:  informatique.ID,
		eclairage:     eclairage.ID,
		climatisation: climatisation.ID,
		laboratoire:   laboratoire.ID,
	}
}

func newAnalyzer(t *testing.T, store energy.Store) *Analyzer {
	t.Helper()
	analyzer, err := NewAnalyzer(store, nil)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return analyzer
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestEquipmentEfficiency(t *testing.T) {
	store, ids := seedStore(t)
	analyzer := newAnalyzer(t, store)

	report, err := analyzer.EquipmentEfficiency(context.Background(), ids.salleInfo)
	if err != nil {
		t.Fatalf("EquipmentEfficiency: %v", err)
	}
	if report == nil {
		t.Fatal("expected a report")
	}
	if report.EquipmentName != "Salle Info 1" {
		t.Errorf("name = %q, want Salle Info 1", report.EquipmentName)
	}
	if !almostEqual(report.ActualKWh, 4.7, 0.005) {
		t.Errorf("actual = %.4f, want 4.7", report.ActualKWh)
	}
	if !almostEqual(report.TheoreticalKWh, 4.8, 0.005) {
		t.Errorf("theoretical = %.4f, want 4.8", report.TheoreticalKWh)
	}
	if !almostEqual(report.DeviationKWh, -0.1, 0.005) {
		t.Errorf("deviation = %.4f, want -0.1", report.DeviationKWh)
	}
	if !almostEqual(report.DeviationPct, -2.08, 0.005) {
		t.Errorf("deviation pct = %.4f, want -2.08", report.DeviationPct)
	}
}

func TestEquipmentEfficiencyUnknown(t *testing.T) {
	store, _ := seedStore(t)
	analyzer := newAnalyzer(t, store)

	report, err := analyzer.EquipmentEfficiency(context.Background(), 999)
	if err != nil {
		t.Fatalf("EquipmentEfficiency: %v", err)
	}
	if report != nil {
		t.Fatalf("expected nil report for unknown equipment, got %+v", report)
	}
}

func TestEquipmentEfficiencyNoHistory(t *testing.T) {
	store, ids := seedStore(t)
	analyzer := newAnalyzer(t, store)

	report, err := analyzer.EquipmentEfficiency(context.Background(), ids.bloc)
	if err != nil {
		t.Fatalf("EquipmentEfficiency: %v", err)
	}
	if report == nil {
		t.Fatal("expected a zeroed report for equipment without history")
	}
	if report.ActualKWh != 0 || report.TheoreticalKWh != 0 || report.DeviationPct != 0 {
		t.Errorf("expected zeroed metrics, got %+v", report)
	}
}

func TestTopEnergyConsumers(t *testing.T) {
	store, _ := seedStore(t)
	analyzer := newAnalyzer(t, store)

	ranking, err := analyzer.TopEnergyConsumers(context.Background(), 2)
	if err != nil {
		t.Fatalf("TopEnergyConsumers: %v", err)
	}
	if len(ranking) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(ranking), ranking)
	}
	if ranking[0].EquipmentName != "Clim Centrale" || !almostEqual(ranking[0].TotalKWh, 21.0, 0.005) {
		t.Errorf("rank 1 = %+v, want Clim Centrale with 21.0", ranking[0])
	}
	if ranking[1].EquipmentName != "Salle Info 1" || !almostEqual(ranking[1].TotalKWh, 4.7, 0.005) {
		t.Errorf("rank 2 = %+v, want Salle Info 1 with 4.7", ranking[1])
	}
}

func TestTopEnergyConsumersNameTieBreak(t *testing.T) {
	store := memory.NewStore()
	building := store.AddBuilding(energy.Building{Name: "Campus Nord"})
	equipmentType := store.AddType(energy.EquipmentType{Name: "Éclairage", TheoreticalKWhPerHour: 0.5})
	source := store.AddSource(energy.Source{Name: "JIRAMA", CostPerKWh: 0.2})
	b := store.AddEquipment(energy.Equipment{Name: "Bravo", TypeID: equipmentType.ID, BuildingID: building.ID})
	a := store.AddEquipment(energy.Equipment{Name: "Alpha", TypeID: equipmentType.ID, BuildingID: building.ID})
	for _, equipment := range []int64{b.ID, a.ID} {
		store.AddConsumption(energy.ConsumptionRecord{
			EquipmentID:     equipment,
			SourceID:        source.ID,
			Timestamp:       time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
			DurationMinutes: 60,
			EnergyKWh:       1.5,
		})
	}

	analyzer := newAnalyzer(t, store)
	ranking, err := analyzer.TopEnergyConsumers(context.Background(), 0)
	if err != nil {
		t.Fatalf("TopEnergyConsumers: %v", err)
	}
	if len(ranking) != 2 || ranking[0].EquipmentName != "Alpha" {
		t.Fatalf("equal totals should order by name, got %+v", ranking)
	}
}

func TestKWhPerUsageHour(t *testing.T) {
	store, ids := seedStore(t)
	analyzer := newAnalyzer(t, store)

	rate, err := analyzer.KWhPerUsageHour(context.Background(), ids.salleInfo)
	if err != nil {
		t.Fatalf("KWhPerUsageHour: %v", err)
	}
	if !almostEqual(rate, 1.175, 0.0005) {
		t.Errorf("rate = %.4f, want 1.175", rate)
	}

	rate, err = analyzer.KWhPerUsageHour(context.Background(), ids.bloc)
	if err != nil {
		t.Fatalf("KWhPerUsageHour: %v", err)
	}
	if rate != 0 {
		t.Errorf("rate without history = %.4f, want 0", rate)
	}
}

func TestTypeEfficiency(t *testing.T) {
	store, ids := seedStore(t)
	analyzer := newAnalyzer(t, store)

	report, err := analyzer.TypeEfficiency(context.Background(), ids.informatique)
	if err != nil {
		t.Fatalf("TypeEfficiency: %v", err)
	}
	if report == nil {
		t.Fatal("expected a report")
	}
	if report.TypeName != "Informatique" {
		t.Errorf("type name = %q, want Informatique", report.TypeName)
	}
	if !almostEqual(report.RealAvgKWhPerHour, 1.175, 0.0005) {
		t.Errorf("real avg = %.4f, want 1.175", report.RealAvgKWhPerHour)
	}
	if !almostEqual(report.EfficiencyPct, 97.917, 0.0005) {
		t.Errorf("efficiency = %.4f, want 97.917", report.EfficiencyPct)
	}
}

func TestTypeEfficiencyUnknown(t *testing.T) {
	store, _ := seedStore(t)
	analyzer := newAnalyzer(t, store)

	report, err := analyzer.TypeEfficiency(context.Background(), 999)
	if err != nil {
		t.Fatalf("TypeEfficiency: %v", err)
	}
	if report != nil {
		t.Fatalf("expected nil report for unknown type, got %+v", report)
	}
}

func TestTypeEfficiencyNoConsumption(t *testing.T) {
	store, ids := seedStore(t)
	analyzer := newAnalyzer(t, store)

	report, err := analyzer.TypeEfficiency(context.Background(), ids.laboratoire)
	if err != nil {
		t.Fatalf("TypeEfficiency: %v", err)
	}
	if report == nil {
		t.Fatal("expected a report for type with idle equipment")
	}
	if report.RealAvgKWhPerHour != 0 || report.EfficiencyPct != 0 {
		t.Errorf("expected zeroed metrics, got %+v", report)
	}
	if report.TheoreticalKWhPerHour != 2.5 {
		t.Errorf("theoretical = %.2f, want 2.5", report.TheoreticalKWhPerHour)
	}
}

func TestDetectWaste(t *testing.T) {
	store, _ := seedStore(t)
	analyzer := newAnalyzer(t, store)

	wasteful, err := analyzer.DetectWaste(context.Background(), 20)
	if err != nil {
		t.Fatalf("DetectWaste: %v", err)
	}
	if len(wasteful) != 2 {
		t.Fatalf("got %d wasteful, want 2: %+v", len(wasteful), wasteful)
	}

	byName := make(map[string]EquipmentReport, len(wasteful))
	for _, report := range wasteful {
		byName[report.EquipmentName] = report
	}
	clim, ok := byName["Clim Centrale"]
	if !ok {
		t.Fatal("Clim Centrale should be flagged")
	}
	if !almostEqual(clim.DeviationPct, 40.0, 0.005) {
		t.Errorf("Clim Centrale deviation = %.4f, want 40.0", clim.DeviationPct)
	}
	amphi, ok := byName["Amphi A"]
	if !ok {
		t.Fatal("Amphi A should be flagged")
	}
	if !almostEqual(amphi.DeviationPct, 25.0, 0.005) {
		t.Errorf("Amphi A deviation = %.4f, want 25.0", amphi.DeviationPct)
	}
}

func TestDetectWasteHighThreshold(t *testing.T) {
	store, _ := seedStore(t)
	analyzer := newAnalyzer(t, store)

	wasteful, err := analyzer.DetectWaste(context.Background(), 50)
	if err != nil {
		t.Fatalf("DetectWaste: %v", err)
	}
	if len(wasteful) != 0 {
		t.Fatalf("got %d wasteful at 50%%, want 0: %+v", len(wasteful), wasteful)
	}
}

func TestConsumptionDuringOutages(t *testing.T) {
	store, ids := seedStore(t)
	// Outage covering the generator window on the morning of Jan 10.
	store.AddOutage(energy.Outage{
		BuildingID: ids.campus,
		StartTime:  time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2025, 1, 10, 11, 0, 0, 0, time.UTC),
		Cause:      "délestage",
	})

	analyzer := newAnalyzer(t, store)
	hits, err := analyzer.ConsumptionDuringOutages(context.Background())
	if err != nil {
		t.Fatalf("ConsumptionDuringOutages: %v", err)
	}
	// 09:00, 09:15, 09:30 and 10:00 readings fall inside the window.
	if len(hits) != 4 {
		t.Fatalf("got %d hits, want 4: %+v", len(hits), hits)
	}
	for _, hit := range hits {
		if hit.OutageOngoing {
			t.Errorf("closed outage flagged as ongoing: %+v", hit)
		}
		if hit.Description == "" {
			t.Error("expected a description")
		}
	}
}

func TestConsumptionDuringOutagesBoundaryInclusive(t *testing.T) {
	store, ids := seedStore(t)
	// Window whose bounds land exactly on two readings.
	store.AddOutage(energy.Outage{
		BuildingID: ids.campus,
		StartTime:  time.Date(2025, 1, 11, 8, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC),
	})

	analyzer := newAnalyzer(t, store)
	hits, err := analyzer.ConsumptionDuringOutages(context.Background())
	if err != nil {
		t.Fatalf("ConsumptionDuringOutages: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("boundary readings should count, got %d hits, want 3", len(hits))
	}
}

func TestConsumptionDuringOngoingOutage(t *testing.T) {
	store, ids := seedStore(t)
	store.AddOutage(energy.Outage{
		BuildingID: ids.campus,
		StartTime:  time.Date(2025, 1, 12, 8, 0, 0, 0, time.UTC),
	})

	analyzer, err := NewAnalyzer(store, fixedClock{now: time.Date(2025, 1, 12, 8, 45, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	hits, err := analyzer.ConsumptionDuringOutages(context.Background())
	if err != nil {
		t.Fatalf("ConsumptionDuringOutages: %v", err)
	}
	// Only the 08:00 and 08:30 readings of Jan 12 precede the clock.
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2: %+v", len(hits), hits)
	}
	for _, hit := range hits {
		if !hit.OutageOngoing {
			t.Errorf("expected ongoing flag: %+v", hit)
		}
		if !strings.Contains(hit.Description, "ongoing") {
			t.Errorf("description should mention the outage is ongoing: %q", hit.Description)
		}
	}
}

func TestConsumptionDuringOutagesNone(t *testing.T) {
	store, _ := seedStore(t)
	analyzer := newAnalyzer(t, store)

	hits, err := analyzer.ConsumptionDuringOutages(context.Background())
	if err != nil {
		t.Fatalf("ConsumptionDuringOutages: %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", hits)
	}
}

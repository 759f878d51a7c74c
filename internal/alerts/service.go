// Package alerts assembles dashboard alerts from the analysis engines and
// pushes them to notification channels.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"kilowatch/internal/analysis/efficiency"
	"kilowatch/internal/analysis/stats"
	"kilowatch/internal/energy"
)

// Kind classifies an alert.
type Kind string

const (
	KindAnomaly           Kind = "anomaly"
	KindWaste             Kind = "waste"
	KindOutageConsumption Kind = "outage_consumption"
)

// Alert is one condition worth surfacing to the operator.
type Alert struct {
	Kind          Kind      `json:"kind"`
	Message       string    `json:"message"`
	EquipmentID   int64     `json:"equipment_id,omitempty"`
	EquipmentName string    `json:"equipment_name,omitempty"`
	BuildingName  string    `json:"building_name,omitempty"`
	EnergyKWh     float64   `json:"energy_kwh,omitempty"`
	RaisedAt      time.Time `json:"raised_at"`
}

// Notifier delivers alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Service runs the detection sweep and fans alerts out to the notifier.
type Service struct {
	detector *stats.Detector
	analyzer *efficiency.Analyzer
	notifier Notifier
	clock    energy.Clock
	logger   zerolog.Logger

	anomalyFactor     float64
	wasteThresholdPct float64
}

// Option configures the service.
type Option func(*Service)

// WithAnomalyFactor overrides the anomaly detection factor.
func WithAnomalyFactor(factor float64) Option {
	return func(s *Service) {
		if factor > 0 {
			s.anomalyFactor = factor
		}
	}
}

// WithWasteThreshold overrides the waste deviation threshold in percent.
func WithWasteThreshold(thresholdPct float64) Option {
	return func(s *Service) {
		if thresholdPct > 0 {
			s.wasteThresholdPct = thresholdPct
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock energy.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs the alert service. The notifier may be nil, in which
// case Publish only collects.
func NewService(detector *stats.Detector, analyzer *efficiency.Analyzer, notifier Notifier, logger zerolog.Logger, opts ...Option) (*Service, error) {
	if detector == nil {
		return nil, errors.New("alerts: nil detector")
	}
	if analyzer == nil {
		return nil, errors.New("alerts: nil analyzer")
	}
	service := &Service{
		detector:          detector,
		analyzer:          analyzer,
		notifier:          notifier,
		clock:             energy.SystemClock{},
		logger:            logger,
		anomalyFactor:     stats.DefaultAnomalyFactor,
		wasteThresholdPct: efficiency.DefaultWasteThresholdPct,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Collect runs all detectors and returns the assembled alerts, most recent
// conditions first within each kind. A sweep with nothing to report returns
// an empty slice.
func (s *Service) Collect(ctx context.Context) ([]Alert, error) {
	now := s.clock.Now()
	collected := []Alert{}

	anomalies, err := s.detector.DetectAnomalies(ctx, s.anomalyFactor)
	if err != nil {
		return nil, fmt.Errorf("collecting anomalies: %w", err)
	}
	for _, record := range anomalies {
		collected = append(collected, Alert{
			Kind: KindAnomaly,
			Message: fmt.Sprintf("abnormally high consumption of %.2f kWh by %s (%s) on %s",
				record.EnergyKWh, record.EquipmentName, record.BuildingName,
				record.Timestamp.Format("2006-01-02 15:04")),
			EquipmentID:   record.EquipmentID,
			EquipmentName: record.EquipmentName,
			BuildingName:  record.BuildingName,
			EnergyKWh:     record.EnergyKWh,
			RaisedAt:      now,
		})
	}

	wasteful, err := s.analyzer.DetectWaste(ctx, s.wasteThresholdPct)
	if err != nil {
		return nil, fmt.Errorf("collecting waste reports: %w", err)
	}
	for _, report := range wasteful {
		collected = append(collected, Alert{
			Kind: KindWaste,
			Message: fmt.Sprintf("%s (%s) exceeds its theoretical consumption by %.1f%%",
				report.EquipmentName, report.BuildingName, report.DeviationPct),
			EquipmentID:   report.EquipmentID,
			EquipmentName: report.EquipmentName,
			BuildingName:  report.BuildingName,
			EnergyKWh:     report.ActualKWh,
			RaisedAt:      now,
		})
	}

	outageHits, err := s.analyzer.ConsumptionDuringOutages(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting outage consumption: %w", err)
	}
	for _, hit := range outageHits {
		collected = append(collected, Alert{
			Kind:          KindOutageConsumption,
			Message:       hit.Description,
			EquipmentID:   hit.EquipmentID,
			EquipmentName: hit.EquipmentName,
			BuildingName:  hit.BuildingName,
			EnergyKWh:     hit.EnergyKWh,
			RaisedAt:      now,
		})
	}

	return collected, nil
}

// Publish collects alerts and pushes each one to the notifier. Delivery
// failures are logged and counted but do not abort the sweep.
func (s *Service) Publish(ctx context.Context) ([]Alert, error) {
	collected, err := s.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if s.notifier == nil {
		return collected, nil
	}
	for _, alert := range collected {
		if err := s.notifier.Notify(ctx, alert); err != nil {
			s.logger.Warn().Err(err).Str("kind", string(alert.Kind)).Msg("alert delivery failed")
		}
	}
	return collected, nil
}

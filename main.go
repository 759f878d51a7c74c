package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"kilowatch/internal/alerts"
	"kilowatch/internal/alerts/notify"
	"kilowatch/internal/analysis/cost"
	"kilowatch/internal/analysis/efficiency"
	"kilowatch/internal/analysis/stats"
	"kilowatch/internal/api/httpapi"
	"kilowatch/internal/config"
	"kilowatch/internal/energy"
	"kilowatch/internal/energy/sqlite"
	"kilowatch/internal/observability/metrics"
	"kilowatch/internal/report"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("loading config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("opening store")
	}
	defer store.Close()

	metrics.Init(store.DB().DB, logger)

	clock := energy.SystemClock{}

	var costOpts []cost.Option
	if cfg.Sources.Grid != "" {
		costOpts = append(costOpts, cost.WithGridSource(cfg.Sources.Grid))
	}
	if cfg.Sources.Generator != "" {
		costOpts = append(costOpts, cost.WithGeneratorSource(cfg.Sources.Generator))
	}
	engine, err := cost.NewEngine(store, costOpts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("building cost engine")
	}

	detector, err := stats.NewDetector(store)
	if err != nil {
		logger.Fatal().Err(err).Msg("building detector")
	}

	analyzer, err := efficiency.NewAnalyzer(store, clock)
	if err != nil {
		logger.Fatal().Err(err).Msg("building analyzer")
	}

	notifier := buildNotifier(cfg, logger)

	var alertOpts []alerts.Option
	if cfg.Analysis.AnomalyFactor > 0 {
		alertOpts = append(alertOpts, alerts.WithAnomalyFactor(cfg.Analysis.AnomalyFactor))
	}
	if cfg.Analysis.WasteThresholdPct > 0 {
		alertOpts = append(alertOpts, alerts.WithWasteThreshold(cfg.Analysis.WasteThresholdPct))
	}
	alertService, err := alerts.NewService(detector, analyzer, notifier, logger, alertOpts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("building alert service")
	}

	reportBuilder, err := report.NewBuilder(engine, detector, analyzer, clock)
	if err != nil {
		logger.Fatal().Err(err).Msg("building report builder")
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Store:    store,
		Mutator:  store,
		Engine:   engine,
		Detector: detector,
		Analyzer: analyzer,
		Alerts:   alertService,
		Reports:  reportBuilder,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

func buildNotifier(cfg config.Config, logger zerolog.Logger) alerts.Notifier {
	var channels []alerts.Notifier
	if cfg.Webhook.Enabled {
		channel, err := notify.NewWebhookChannel(cfg.Webhook.URL)
		if err != nil {
			logger.Warn().Err(err).Msg("webhook channel disabled")
		} else {
			channels = append(channels, channel)
		}
	}
	if cfg.MQTT.Enabled {
		channel, err := notify.NewMQTTChannel(notify.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("mqtt channel disabled")
		} else {
			channels = append(channels, channel)
		}
	}
	if len(channels) == 0 {
		return nil
	}
	return notify.NewMulti(channels...)
}

// Package config loads application settings from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string         `yaml:"database_path"`
	HTTPAddr     string         `yaml:"http_addr"`
	LogLevel     string         `yaml:"log_level"`
	Sources      SourcesConfig  `yaml:"sources"`
	Analysis     AnalysisConfig `yaml:"analysis"`
	Webhook      WebhookConfig  `yaml:"webhook"`
	MQTT         MQTTConfig     `yaml:"mqtt"`
}

// SourcesConfig names the two billable sources the comparison reports on.
type SourcesConfig struct {
	Grid      string `yaml:"grid"`
	Generator string `yaml:"generator"`
}

// AnalysisConfig tunes the detection thresholds.
type AnalysisConfig struct {
	AnomalyFactor     float64 `yaml:"anomaly_factor"`
	WasteThresholdPct float64 `yaml:"waste_threshold_pct"`
	TopConsumers      int     `yaml:"top_consumers"`
}

// WebhookConfig holds the alert webhook endpoint.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// MQTTConfig holds broker settings for the MQTT alert channel.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Load reads the YAML file at path (when it exists) and applies environment
// overrides on top. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		DatabasePath: "kilowatch.db",
		HTTPAddr:     ":8080",
		LogLevel:     "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.DatabasePath = getenvDefault("KILOWATCH_DB_PATH", cfg.DatabasePath)
	cfg.HTTPAddr = getenvDefault("KILOWATCH_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = getenvDefault("KILOWATCH_LOG_LEVEL", cfg.LogLevel)
	cfg.Sources.Grid = getenvDefault("KILOWATCH_GRID_SOURCE", cfg.Sources.Grid)
	cfg.Sources.Generator = getenvDefault("KILOWATCH_GENERATOR_SOURCE", cfg.Sources.Generator)
	cfg.Analysis.AnomalyFactor = getenvFloatDefault("KILOWATCH_ANOMALY_FACTOR", cfg.Analysis.AnomalyFactor)
	cfg.Analysis.WasteThresholdPct = getenvFloatDefault("KILOWATCH_WASTE_THRESHOLD_PCT", cfg.Analysis.WasteThresholdPct)
	cfg.Analysis.TopConsumers = getenvIntDefault("KILOWATCH_TOP_CONSUMERS", cfg.Analysis.TopConsumers)
	if url := os.Getenv("KILOWATCH_WEBHOOK_URL"); url != "" {
		cfg.Webhook.Enabled = true
		cfg.Webhook.URL = url
	}
	if broker := os.Getenv("KILOWATCH_MQTT_BROKER"); broker != "" {
		cfg.MQTT.Enabled = true
		cfg.MQTT.Broker = broker
	}

	if cfg.DatabasePath == "" {
		return cfg, fmt.Errorf("config: database path required")
	}
	return cfg, nil
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	if path := os.Getenv("KILOWATCH_CONFIG"); path != "" {
		return path
	}
	return "config.yaml"
}

func getenvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvFloatDefault(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

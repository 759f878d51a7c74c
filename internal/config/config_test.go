package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabasePath != "kilowatch.db" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.Webhook.Enabled || cfg.MQTT.Enabled {
		t.Error("channels should be disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database_path: /var/lib/kilowatch/data.db
http_addr: ":9090"
log_level: debug
sources:
  grid: EDF
  generator: Diesel
analysis:
  anomaly_factor: 3.0
  waste_threshold_pct: 30
webhook:
  enabled: true
  url: https://hooks.example.com/alerts
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabasePath != "/var/lib/kilowatch/data.db" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.Sources.Grid != "EDF" || cfg.Sources.Generator != "Diesel" {
		t.Errorf("sources = %+v", cfg.Sources)
	}
	if cfg.Analysis.AnomalyFactor != 3.0 || cfg.Analysis.WasteThresholdPct != 30 {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if !cfg.Webhook.Enabled || cfg.Webhook.URL != "https://hooks.example.com/alerts" {
		t.Errorf("webhook = %+v", cfg.Webhook)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KILOWATCH_DB_PATH", "/tmp/override.db")
	t.Setenv("KILOWATCH_GRID_SOURCE", "EDF")
	t.Setenv("KILOWATCH_ANOMALY_FACTOR", "2.5")
	t.Setenv("KILOWATCH_WEBHOOK_URL", "https://hooks.example.com/x")
	t.Setenv("KILOWATCH_MQTT_BROKER", "localhost:1883")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabasePath != "/tmp/override.db" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.Sources.Grid != "EDF" {
		t.Errorf("grid source = %q", cfg.Sources.Grid)
	}
	if cfg.Analysis.AnomalyFactor != 2.5 {
		t.Errorf("anomaly factor = %v", cfg.Analysis.AnomalyFactor)
	}
	if !cfg.Webhook.Enabled || cfg.Webhook.URL != "https://hooks.example.com/x" {
		t.Errorf("webhook = %+v", cfg.Webhook)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != "localhost:1883" {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
}

func TestInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("::: not yaml"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.Mode != StorageModeMemory {
		t.Errorf("Storage.Mode = %v, want memory", cfg.Storage.Mode)
	}
	if !cfg.Storage.UseMemory() {
		t.Error("UseMemory() should be true by default")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Kafka.Topic != "bloodlink-alert-events" {
		t.Errorf("Kafka.Topic = %v, want bloodlink-alert-events", cfg.Kafka.Topic)
	}
	if cfg.Alerts.TTL != 24*time.Hour {
		t.Errorf("Alerts.TTL = %v, want 24h", cfg.Alerts.TTL)
	}
	if cfg.Alerts.PropagationFanout != 5 {
		t.Errorf("Alerts.PropagationFanout = %v, want 5", cfg.Alerts.PropagationFanout)
	}
	if cfg.Alerts.SweepInterval != time.Minute {
		t.Errorf("Alerts.SweepInterval = %v, want 1m", cfg.Alerts.SweepInterval)
	}
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	partial := `
storage:
  mode: storage
server:
  port: 9090
alerts:
  ttl: 2h
  propagation_fanout: 3
logger:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(partial), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if !cfg.Storage.UseStorage() {
		t.Error("UseStorage() should be true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %v, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Address() != "0.0.0.0:9090" {
		t.Errorf("Address() = %v, want defaulted host with configured port", cfg.Server.Address())
	}
	if cfg.Alerts.TTL != 2*time.Hour {
		t.Errorf("Alerts.TTL = %v, want 2h", cfg.Alerts.TTL)
	}
	if cfg.Alerts.PropagationFanout != 3 {
		t.Errorf("Alerts.PropagationFanout = %v, want 3", cfg.Alerts.PropagationFanout)
	}
	if cfg.Alerts.SweepInterval != time.Minute {
		t.Errorf("Alerts.SweepInterval = %v, want defaulted 1m", cfg.Alerts.SweepInterval)
	}
	if cfg.Postgres.Host != "localhost" {
		t.Errorf("Postgres.Host = %v, want defaulted localhost", cfg.Postgres.Host)
	}
	if cfg.Logger.Level != "debug" || cfg.Logger.Format != "text" {
		t.Errorf("Logger = %+v, want debug/text", cfg.Logger)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

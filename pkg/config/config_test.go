package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Index.Stripes != 64 {
		t.Errorf("Index.Stripes = %d, want 64", cfg.Index.Stripes)
	}
	if !cfg.Storage.CleanupOnShutdown {
		t.Error("Storage.CleanupOnShutdown should default to true")
	}
	if cfg.Redis.Enabled || cfg.Kafka.Enabled || cfg.Postgres.Enabled {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  readTimeout: 5s
storage:
  location: /tmp/uploads
  maxFileSize: 2048
  maxRequestSize: 4096
index:
  stripes: 16
redis:
  enabled: true
  cacheTTL: 2m
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("unset WriteTimeout should keep default, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Storage.Location != "/tmp/uploads" || cfg.Storage.MaxFileSize != 2048 {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Index.Stripes != 16 {
		t.Errorf("Index.Stripes = %d", cfg.Index.Stripes)
	}
	if !cfg.Redis.Enabled || cfg.Redis.CacheTTL != 2*time.Minute {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TS_SERVER_PORT", "7070")
	t.Setenv("TS_INDEX_STRIPES", "128")
	t.Setenv("TS_STORAGE_CLEANUP_ON_SHUTDOWN", "false")
	t.Setenv("TS_KAFKA_BROKERS", "a:1,b:2")
	t.Setenv("TS_LOGGING_LEVEL", "debug")
	t.Setenv("TS_METRICS_PORT", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Index.Stripes != 128 {
		t.Errorf("Index.Stripes = %d", cfg.Index.Stripes)
	}
	if cfg.Storage.CleanupOnShutdown {
		t.Error("CleanupOnShutdown override ignored")
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"a:1", "b:2"}) {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("malformed TS_METRICS_PORT should be ignored, got %d", cfg.Metrics.Port)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "server: [not a map")); err == nil {
		t.Error("expected error for malformed YAML")
	}
	if _, err := Load(writeConfig(t, "index:\n  stripes: 0\n")); err == nil {
		t.Error("expected validation error for zero stripes")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"no storage location", func(c *Config) { c.Storage.Location = "" }},
		{"request smaller than file", func(c *Config) { c.Storage.MaxRequestSize = c.Storage.MaxFileSize - 1 }},
		{"limit above max", func(c *Config) { c.Search.DefaultLimit = c.Search.MaxResults + 1 }},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	want := "host=db port=5433 user=u password=p dbname=d sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

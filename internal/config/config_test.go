package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Concurrency != 10 || cfg.HTTP.MaxAttempts != 3 {
		t.Fatalf("unexpected fetch defaults: %+v", cfg.HTTP)
	}
	if got := cfg.Timeout(); got != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %v", got)
	}
	if got := cfg.RetryDelay(); got != 2*time.Second {
		t.Fatalf("expected 2s retry delay, got %v", got)
	}
	if cfg.Store.Path != "providers.json" {
		t.Fatalf("expected providers.json, got %q", cfg.Store.Path)
	}
	if got := cfg.ListingURL(); got != "https://embed.ly/providers" {
		t.Fatalf("unexpected listing url %q", got)
	}
	if got := cfg.DetailURL("youtube"); got != "https://embed.ly/provider/youtube" {
		t.Fatalf("unexpected detail url %q", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
source:
  base_url: http://127.0.0.1:9999/
  listing_path: /dir
  detail_path: /p/%s.html
http:
  timeout_seconds: 5
  max_attempts: 4
  retry_delay_ms: 10
  concurrency: 2
  skip_permanent_errors: true
store:
  path: out/providers.json
  repair_corrupt: true
domains:
  enabled: true
  path: out/domains.json
logging:
  development: false
  level: warn
metrics:
  textfile: out/providersync.prom
export:
  postgres:
    dsn: postgres://localhost/db
    table: embed_providers
  pubsub:
    project_id: proj
    topic: provider-runs
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTP.Concurrency != 2 || cfg.HTTP.MaxAttempts != 4 || !cfg.HTTP.SkipPermanentErrors {
		t.Fatalf("expected http overrides to apply: %+v", cfg.HTTP)
	}
	if got := cfg.DetailURL("a b"); got != "http://127.0.0.1:9999/p/a%20b.html" {
		t.Fatalf("unexpected detail url %q", got)
	}
	if !cfg.Store.RepairCorrupt || cfg.Store.Path != "out/providers.json" {
		t.Fatalf("expected store overrides: %+v", cfg.Store)
	}
	if !cfg.Domains.Enabled || cfg.Domains.Path != "out/domains.json" {
		t.Fatalf("expected domains overrides: %+v", cfg.Domains)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "warn" {
		t.Fatalf("expected logging overrides: %+v", cfg.Logging)
	}
	if cfg.Export.Postgres.Table != "embed_providers" || cfg.Export.PubSub.Topic != "provider-runs" {
		t.Fatalf("expected export overrides: %+v", cfg.Export)
	}
	if cfg.Export.GCS.Object != "providers.json" {
		t.Fatalf("expected gcs object default, got %q", cfg.Export.GCS.Object)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Source: SourceConfig{BaseURL: "https://embed.ly", ListingPath: "/providers", DetailPath: "/provider/%s"},
		HTTP:   HTTPConfig{TimeoutSeconds: 15, MaxAttempts: 3, RetryDelayMs: 2000, Concurrency: 10},
		Store:  StoreConfig{Path: "providers.json"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative base url", func(c *Config) { c.Source.BaseURL = "embed.ly" }, "source.base_url"},
		{"detail without placeholder", func(c *Config) { c.Source.DetailPath = "/provider" }, "source.detail_path"},
		{"invalid timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, "http.timeout_seconds"},
		{"invalid attempts", func(c *Config) { c.HTTP.MaxAttempts = 0 }, "http.max_attempts"},
		{"negative delay", func(c *Config) { c.HTTP.RetryDelayMs = -1 }, "http.retry_delay_ms"},
		{"invalid concurrency", func(c *Config) { c.HTTP.Concurrency = 0 }, "http.concurrency"},
		{"empty store path", func(c *Config) { c.Store.Path = " " }, "store.path"},
		{"domains without path", func(c *Config) { c.Domains.Enabled = true }, "domains.path"},
		{"topic without project", func(c *Config) { c.Export.PubSub.Topic = "t" }, "export.pubsub.project_id"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

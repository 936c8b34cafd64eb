// Package config loads and validates providersync configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix scopes environment overrides, e.g. PROVIDERSYNC_HTTP_CONCURRENCY=4.
const EnvPrefix = "PROVIDERSYNC"

// Config captures all knobs of a sync run loaded via Viper.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Store   StoreConfig   `mapstructure:"store"`
	Domains DomainsConfig `mapstructure:"domains"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Export  ExportConfig  `mapstructure:"export"`
}

// SourceConfig locates the provider directory.
type SourceConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	ListingPath string `mapstructure:"listing_path"`
	// DetailPath is a fmt template receiving the provider id.
	DetailPath string `mapstructure:"detail_path"`
}

// HTTPConfig configures the bounded fetcher.
type HTTPConfig struct {
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	MaxAttempts         int    `mapstructure:"max_attempts"`
	RetryDelayMs        int    `mapstructure:"retry_delay_ms"`
	Concurrency         int    `mapstructure:"concurrency"`
	UserAgent           string `mapstructure:"user_agent"`
	SkipPermanentErrors bool   `mapstructure:"skip_permanent_errors"`
}

// StoreConfig sets where the provider document lives.
type StoreConfig struct {
	Path          string `mapstructure:"path"`
	RepairCorrupt bool   `mapstructure:"repair_corrupt"`
}

// DomainsConfig toggles the supported-domains index.
type DomainsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig controls end-of-run metric delivery.
type MetricsConfig struct {
	Textfile       string `mapstructure:"textfile"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	JobName        string `mapstructure:"job_name"`
}

// ExportConfig groups the optional store mirrors.
type ExportConfig struct {
	Postgres PostgresExportConfig `mapstructure:"postgres"`
	GCS      GCSExportConfig      `mapstructure:"gcs"`
	PubSub   PubSubExportConfig   `mapstructure:"pubsub"`
}

// PostgresExportConfig mirrors providers into a table.
type PostgresExportConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// GCSExportConfig uploads the provider document to a bucket.
type GCSExportConfig struct {
	Bucket string `mapstructure:"bucket"`
	Object string `mapstructure:"object"`
}

// PubSubExportConfig publishes a run summary.
type PubSubExportConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://embed.ly")
	v.SetDefault("source.listing_path", "/providers")
	v.SetDefault("source.detail_path", "/provider/%s")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.retry_delay_ms", 2000)
	v.SetDefault("http.concurrency", 10)
	v.SetDefault("http.user_agent", "providersync/1.0")
	v.SetDefault("http.skip_permanent_errors", false)
	v.SetDefault("store.path", "providers.json")
	v.SetDefault("store.repair_corrupt", false)
	v.SetDefault("domains.enabled", false)
	v.SetDefault("domains.path", "supported-domains.json")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job_name", "providersync")
	v.SetDefault("export.postgres.dsn", "")
	v.SetDefault("export.postgres.table", "providers")
	v.SetDefault("export.gcs.bucket", "")
	v.SetDefault("export.gcs.object", "providers.json")
	v.SetDefault("export.pubsub.project_id", "")
	v.SetDefault("export.pubsub.topic", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.Source.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source.base_url must be an absolute URL")
	}
	if !strings.Contains(c.Source.DetailPath, "%s") {
		return fmt.Errorf("source.detail_path must contain %%s")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.HTTP.RetryDelayMs < 0 {
		return fmt.Errorf("http.retry_delay_ms must be >= 0")
	}
	if c.HTTP.Concurrency <= 0 {
		return fmt.Errorf("http.concurrency must be > 0")
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path must be set")
	}
	if c.Domains.Enabled && strings.TrimSpace(c.Domains.Path) == "" {
		return fmt.Errorf("domains.path must be set when domains are enabled")
	}
	if c.Export.PubSub.Topic != "" && c.Export.PubSub.ProjectID == "" {
		return fmt.Errorf("export.pubsub.project_id must be set when a topic is configured")
	}
	return nil
}

// ListingURL is the absolute URL of the directory page.
func (c Config) ListingURL() string {
	return strings.TrimRight(c.Source.BaseURL, "/") + c.Source.ListingPath
}

// DetailURL is the absolute URL of one provider page.
func (c Config) DetailURL(id string) string {
	return strings.TrimRight(c.Source.BaseURL, "/") + fmt.Sprintf(c.Source.DetailPath, url.PathEscape(id))
}

// Timeout converts http.timeout_seconds into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RetryDelay converts http.retry_delay_ms into a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.HTTP.RetryDelayMs) * time.Millisecond
}

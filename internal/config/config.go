package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Harvest   HarvestConfig   `yaml:"harvest" mapstructure:"harvest"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Aggregate AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig locates the three phase stores and the validation reports.
type StoreConfig struct {
	HarvestPath    string `yaml:"harvest_path" mapstructure:"harvest_path"`
	EnrichmentPath string `yaml:"enrichment_path" mapstructure:"enrichment_path"`
	MasterPath     string `yaml:"master_path" mapstructure:"master_path"`
	ReportsDir     string `yaml:"reports_dir" mapstructure:"reports_dir"`
}

// GoogleConfig configures the Places API client.
type GoogleConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
}

// HarvestConfig configures phase 1.
type HarvestConfig struct {
	MaxLeads       int     `yaml:"max_leads" mapstructure:"max_leads"`
	MaxAttempts    int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffBaseMs  int     `yaml:"backoff_base_ms" mapstructure:"backoff_base_ms"`
	ManifestPath   string  `yaml:"manifest_path" mapstructure:"manifest_path"`
	QueryRateLimit float64 `yaml:"query_rate_limit" mapstructure:"query_rate_limit"` // manifest queries per second
}

// EnrichConfig configures phase 2.
type EnrichConfig struct {
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	SkipEnriched bool   `yaml:"skip_enriched" mapstructure:"skip_enriched"`
}

// AggregateConfig configures phase 3.
type AggregateConfig struct {
	Identity string `yaml:"identity" mapstructure:"identity"` // exact | normalized
}

// ExportConfig configures master-record exports.
type ExportConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
	XLSXPath    string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// MetricsConfig configures the Prometheus textfile output. Empty disables it.
type MetricsConfig struct {
	TextfileDir string `yaml:"textfile_dir" mapstructure:"textfile_dir"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.harvest_path", "data/raw_leads.db")
	v.SetDefault("store.enrichment_path", "data/enriched_data.db")
	v.SetDefault("store.master_path", "data/master_leads.db")
	v.SetDefault("store.reports_dir", "reports")
	v.SetDefault("google.key", "")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.rate_limit", 5.0)
	v.SetDefault("harvest.max_leads", 10)
	v.SetDefault("harvest.max_attempts", 3)
	v.SetDefault("harvest.backoff_base_ms", 1000)
	v.SetDefault("harvest.manifest_path", "search_manifest.yaml")
	v.SetDefault("harvest.query_rate_limit", 0.5)
	v.SetDefault("enrich.timeout_secs", 15)
	v.SetDefault("enrich.user_agent", "Mozilla/5.0 (compatible; LeadHarvest/1.0)")
	v.SetDefault("enrich.max_body_bytes", 2<<20)
	v.SetDefault("enrich.skip_enriched", false)
	v.SetDefault("aggregate.identity", "exact")
	v.SetDefault("export.database_url", "")
	v.SetDefault("export.table", "master_leads")
	v.SetDefault("export.xlsx_path", "exports/master_leads.xlsx")
	v.SetDefault("metrics.textfile_dir", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the keys a command needs are present. Every problem
// is reported in one error.
func (c *Config) Validate(command string) error {
	var errs []string
	check := func(ok bool, msg string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Sprintf(msg, args...))
		}
	}

	switch command {
	case "harvest":
		check(c.Store.HarvestPath != "", "store.harvest_path is required")
		check(c.Google.Key != "", "google.key is required")
		check(c.Google.RateLimit > 0, "google.rate_limit must be positive")
		check(c.Harvest.MaxLeads > 0, "harvest.max_leads must be positive")
		check(c.Harvest.MaxAttempts > 0, "harvest.max_attempts must be positive")
		check(c.Harvest.BackoffBaseMs > 0, "harvest.backoff_base_ms must be positive")
	case "enrich":
		check(c.Store.HarvestPath != "", "store.harvest_path is required")
		check(c.Store.EnrichmentPath != "", "store.enrichment_path is required")
		check(c.Enrich.TimeoutSecs > 0, "enrich.timeout_secs must be positive")
	case "aggregate":
		check(c.Store.HarvestPath != "", "store.harvest_path is required")
		check(c.Store.EnrichmentPath != "", "store.enrichment_path is required")
		check(c.Store.MasterPath != "", "store.master_path is required")
		switch c.Aggregate.Identity {
		case "", "exact", "normalized":
		default:
			check(false, "aggregate.identity must be exact or normalized, got %q", c.Aggregate.Identity)
		}
	case "validate":
		check(c.Store.ReportsDir != "", "store.reports_dir is required")
	case "export-xlsx":
		check(c.Store.MasterPath != "", "store.master_path is required")
		check(c.Export.XLSXPath != "", "export.xlsx_path is required")
	case "export-postgres":
		check(c.Store.MasterPath != "", "store.master_path is required")
		check(c.Export.DatabaseURL != "", "export.database_url is required")
	case "serve":
		check(c.Server.Port > 0 && c.Server.Port <= 65535, "server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// NewLogger builds a zap logger from cfg. Callers own the logger and sync it
// on exit.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	return logger, nil
}

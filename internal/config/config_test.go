package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/raw_leads.db", cfg.Store.HarvestPath)
	assert.Equal(t, "data/enriched_data.db", cfg.Store.EnrichmentPath)
	assert.Equal(t, "data/master_leads.db", cfg.Store.MasterPath)
	assert.Equal(t, "reports", cfg.Store.ReportsDir)
	assert.Equal(t, "https://places.googleapis.com/v1", cfg.Google.BaseURL)
	assert.InDelta(t, 5.0, cfg.Google.RateLimit, 0.001)
	assert.Equal(t, 10, cfg.Harvest.MaxLeads)
	assert.Equal(t, 3, cfg.Harvest.MaxAttempts)
	assert.Equal(t, 1000, cfg.Harvest.BackoffBaseMs)
	assert.Equal(t, 15, cfg.Enrich.TimeoutSecs)
	assert.Equal(t, int64(2<<20), cfg.Enrich.MaxBodyBytes)
	assert.False(t, cfg.Enrich.SkipEnriched)
	assert.Equal(t, "exact", cfg.Aggregate.Identity)
	assert.Equal(t, "master_leads", cfg.Export.Table)
	assert.Empty(t, cfg.Metrics.TextfileDir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  harvest_path: /var/lib/leads/raw.db
harvest:
  max_leads: 50
enrich:
  skip_enriched: true
aggregate:
  identity: normalized
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/leads/raw.db", cfg.Store.HarvestPath)
	assert.Equal(t, 50, cfg.Harvest.MaxLeads)
	assert.True(t, cfg.Enrich.SkipEnriched)
	assert.Equal(t, "normalized", cfg.Aggregate.Identity)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, "data/master_leads.db", cfg.Store.MasterPath)
	assert.Equal(t, 3, cfg.Harvest.MaxAttempts)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
harvest:
  max_leads: 50
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("LEADGEN_HARVEST_MAX_LEADS", "25")
	t.Setenv("LEADGEN_LOG_LEVEL", "warn")
	t.Setenv("LEADGEN_GOOGLE_KEY", "places-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Harvest.MaxLeads)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "places-key", cfg.Google.Key)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			log, err := NewLogger(LogConfig{Level: "debug", Format: format})
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store = StoreConfig{
		HarvestPath:    "raw_leads.db",
		EnrichmentPath: "enriched_data.db",
		MasterPath:     "master_leads.db",
		ReportsDir:     "reports",
	}
	cfg.Google.RateLimit = 5
	cfg.Harvest = HarvestConfig{MaxLeads: 10, MaxAttempts: 3, BackoffBaseMs: 1000}
	cfg.Enrich.TimeoutSecs = 15
	cfg.Aggregate.Identity = "exact"
	cfg.Export.XLSXPath = "leads.xlsx"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateHarvest(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("harvest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google.key is required")

	cfg.Google.Key = "places-key"
	assert.NoError(t, cfg.Validate("harvest"))

	cfg.Harvest.MaxLeads = 0
	cfg.Harvest.MaxAttempts = 0
	err = cfg.Validate("harvest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "harvest.max_leads must be positive")
	assert.Contains(t, err.Error(), "harvest.max_attempts must be positive")
}

func TestValidateHarvestBackoffBase(t *testing.T) {
	cfg := validDefaults()
	cfg.Google.Key = "places-key"

	for _, ms := range []int{0, -1} {
		cfg.Harvest.BackoffBaseMs = ms
		err := cfg.Validate("harvest")
		require.Error(t, err, ms)
		assert.Contains(t, err.Error(), "harvest.backoff_base_ms must be positive")
	}

	cfg.Harvest.BackoffBaseMs = 1
	assert.NoError(t, cfg.Validate("harvest"))
}

func TestValidateEnrich(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("enrich"))

	cfg.Enrich.TimeoutSecs = 0
	err := cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrich.timeout_secs")
}

func TestValidateAggregateIdentity(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("aggregate"))

	cfg.Aggregate.Identity = "normalized"
	assert.NoError(t, cfg.Validate("aggregate"))

	cfg.Aggregate.Identity = "fuzzy"
	err := cfg.Validate("aggregate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `got "fuzzy"`)
}

func TestValidateExportPostgres(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("export-postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.database_url is required")

	cfg.Export.DatabaseURL = "postgres://localhost/crm"
	assert.NoError(t, cfg.Validate("export-postgres"))
	assert.NoError(t, cfg.Validate("export-xlsx"))
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidateUnknownCommand(t *testing.T) {
	assert.NoError(t, (&Config{}).Validate("status"))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
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

	assert.Equal(t, "Sells Advisors blake@sellsadvisors.com", cfg.Edgar.UserAgent)
	assert.Equal(t, "https://efts.sec.gov/LATEST/search-index", cfg.Edgar.SearchURL)
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data", cfg.Edgar.ArchivesURL)
	assert.Equal(t, 200*time.Millisecond, cfg.Edgar.MinInterval())
	assert.Equal(t, 30*time.Second, cfg.Edgar.Timeout())
	assert.Equal(t, 5, cfg.Edgar.MaxRedirects)
	assert.Equal(t, 3, cfg.Edgar.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.Edgar.RetryBackoff())
	assert.Equal(t, 20, cfg.Search.BatchSize)
	assert.Equal(t, 10, cfg.Search.MaxFilings)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "data", cfg.Store.Dir)
	assert.InDelta(t, 0.10, cfg.Classify.ReviewThreshold, 0.0001)
	assert.Empty(t, cfg.Resolve.Suffixes)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  dir: /var/lib/formd
edgar:
  min_interval_ms: 500
resolve:
  suffixes: [inc, llc]
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/formd", cfg.Store.Dir)
	assert.Equal(t, 500*time.Millisecond, cfg.Edgar.MinInterval())
	assert.Equal(t, []string{"inc", "llc"}, cfg.Resolve.Suffixes)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 20, cfg.Search.BatchSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("FORMD_STORE_DRIVER", "postgres")
	t.Setenv("FORMD_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("FORMD_EDGAR_USER_AGENT", "Someone else@example.com")
	t.Setenv("FORMD_SEARCH_BATCH_SIZE", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Someone else@example.com", cfg.Edgar.UserAgent)
	assert.Equal(t, 5, cfg.Search.BatchSize)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Edgar.UserAgent = "Test Co test@example.com"
	cfg.Edgar.RetryAttempts = 3
	cfg.Search.BatchSize = 20
	cfg.Search.MaxFilings = 10
	cfg.Store.Driver = "file"
	cfg.Store.Dir = "data"
	cfg.Classify.ReviewThreshold = 0.1
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"edgar", "store", "serve"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidate_Edgar(t *testing.T) {
	cfg := validDefaults()
	cfg.Edgar.UserAgent = " "
	cfg.Search.BatchSize = 0

	err := cfg.Validate("edgar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edgar.user_agent is required")
	assert.Contains(t, err.Error(), "search.batch_size must be >= 1")

	// Offline commands don't need EDGAR settings.
	assert.NoError(t, cfg.Validate("store"))
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = "mongo"
	err = cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be one of")
}

func TestValidate_Serve(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hhvacancies/internal/config"
)

var envKeys = []string{
	"LOG_LEVEL", "DB_DRIVER", "DATABASE_URL", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER",
	"DB_PASSWORD", "DB_SSL_MODE", "DB_PATH", "HH_BASE_URL", "HH_USER_AGENT", "HH_PER_PAGE",
	"HH_SEARCH_TEXT", "HH_TIMEOUT", "EMPLOYER_IDS", "EXCLUDE_TERMS", "REDIS_URL", "REDIS_TTL",
	"HTTP_PORT", "SYNC_INTERVAL_HOURS",
}

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, config.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "https://api.hh.ru", cfg.HH.BaseURL)
	assert.Equal(t, "HH-User-Agent", cfg.HH.UserAgent)
	assert.Equal(t, 100, cfg.HH.PerPage)
	assert.Equal(t, 15*time.Second, cfg.HH.Timeout)
	assert.Equal(t, config.DefaultEmployerIDs, cfg.EmployerIDs)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, "8081", cfg.Serve.Port)
	assert.Equal(t, 6, cfg.Serve.SyncIntervalHours)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeYAML(t, `
log_level: debug
database:
  driver: sqlite
  path: /tmp/hh.db
hh:
  per_page: 20
  search_text: golang
  timeout: 30s
employer_ids: ["1", "2"]
exclude_terms: [стажёр]
redis:
  url: redis://localhost:6379/0
  ttl: 1h
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/hh.db", cfg.Database.Path)
	assert.Equal(t, 20, cfg.HH.PerPage)
	assert.Equal(t, "golang", cfg.HH.SearchText)
	assert.Equal(t, 30*time.Second, cfg.HH.Timeout)
	assert.Equal(t, "HH-User-Agent", cfg.HH.UserAgent, "unset keys keep their defaults")
	assert.Equal(t, []string{"1", "2"}, cfg.EmployerIDs)
	assert.Equal(t, []string{"стажёр"}, cfg.ExcludeTerms)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeYAML(t, "hh:\n  per_page: 20\nemployer_ids: [\"1\"]\n")
	t.Setenv("HH_PER_PAGE", "50")
	t.Setenv("EMPLOYER_IDS", " 3529, 1740 ,,80")
	t.Setenv("HH_TIMEOUT", "5s")
	t.Setenv("SYNC_INTERVAL_HOURS", "12")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.HH.PerPage)
	assert.Equal(t, []string{"3529", "1740", "80"}, cfg.EmployerIDs)
	assert.Equal(t, 5*time.Second, cfg.HH.Timeout)
	assert.Equal(t, 12, cfg.Serve.SyncIntervalHours)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(writeYAML(t, "hh: [not, a, map"))
	assert.Error(t, err)
}

func TestLoad_CollectsAllProblems(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("HH_PER_PAGE", "500")
	t.Setenv("EMPLOYER_IDS", "")
	t.Setenv("SYNC_INTERVAL_HOURS", "0")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown driver "mysql"`)
	assert.Contains(t, err.Error(), "per_page")
	assert.Contains(t, err.Error(), "employer_ids")
	assert.Contains(t, err.Error(), "sync_interval_hours")
}

func TestLoad_BadNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PORT", "five")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PORT")
}

func TestPostgresURL(t *testing.T) {
	d := config.DatabaseConfig{Host: "db", Port: 5433, Name: "hh", User: "app", Password: "p@ss", SSLMode: "require"}
	assert.Equal(t, "postgres://app:p%40ss@db:5433/hh?sslmode=require", d.PostgresURL())

	d.URL = "postgres://override/x"
	assert.Equal(t, "postgres://override/x", d.PostgresURL())
}

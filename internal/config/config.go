// Package config loads runtime configuration: built-in defaults, then an
// optional YAML file, then environment variables (with .env support).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultEmployerIDs are the hh.ru employers synced when none are configured.
var DefaultEmployerIDs = []string{"3529", "1740", "2120", "84585", "78638", "80", "599", "2180", "87021", "3530"}

// Config holds all runtime configuration.
type Config struct {
	LogLevel     string         `yaml:"log_level"`
	Database     DatabaseConfig `yaml:"database"`
	HH           HHConfig       `yaml:"hh"`
	EmployerIDs  []string       `yaml:"employer_ids"`
	ExcludeTerms []string       `yaml:"exclude_terms"`
	Redis        RedisConfig    `yaml:"redis"`
	Serve        ServeConfig    `yaml:"serve"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres | sqlite

	// postgres; URL wins over the discrete fields
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`

	// sqlite
	Path string `yaml:"path"`
}

type HHConfig struct {
	BaseURL    string        `yaml:"base_url"`
	UserAgent  string        `yaml:"user_agent"`
	PerPage    int           `yaml:"per_page"`
	SearchText string        `yaml:"search_text"`
	Timeout    time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	URL string        `yaml:"url"` // empty disables the response cache
	TTL time.Duration `yaml:"ttl"`
}

type ServeConfig struct {
	Port              string `yaml:"port"`
	SyncIntervalHours int    `yaml:"sync_interval_hours"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Database: DatabaseConfig{
			Driver:  DriverPostgres,
			Host:    "localhost",
			Port:    5432,
			Name:    "hh_vacancies",
			User:    "postgres",
			SSLMode: "disable",
			Path:    "hhvacancies.db",
		},
		HH: HHConfig{
			BaseURL:   "https://api.hh.ru",
			UserAgent: "HH-User-Agent",
			PerPage:   100,
			Timeout:   15 * time.Second,
		},
		EmployerIDs: append([]string(nil), DefaultEmployerIDs...),
		Redis:       RedisConfig{TTL: 6 * time.Hour},
		Serve:       ServeConfig{Port: "8081", SyncIntervalHours: 6},
	}
}

// Load builds a validated Config. A missing YAML file or .env file is not
// an error; an unreadable or unparsable one is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ─── Environment ──────────────────────────────────────────────────────────────

func (c *Config) applyEnv() error {
	var errs []error

	setString(&c.LogLevel, "LOG_LEVEL")

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Host, "DB_HOST")
	errs = append(errs, setInt(&c.Database.Port, "DB_PORT"))
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.SSLMode, "DB_SSL_MODE")
	setString(&c.Database.Path, "DB_PATH")

	setString(&c.HH.BaseURL, "HH_BASE_URL")
	setString(&c.HH.UserAgent, "HH_USER_AGENT")
	errs = append(errs, setInt(&c.HH.PerPage, "HH_PER_PAGE"))
	setString(&c.HH.SearchText, "HH_SEARCH_TEXT")
	errs = append(errs, setDuration(&c.HH.Timeout, "HH_TIMEOUT"))

	setList(&c.EmployerIDs, "EMPLOYER_IDS")
	setList(&c.ExcludeTerms, "EXCLUDE_TERMS")

	setString(&c.Redis.URL, "REDIS_URL")
	errs = append(errs, setDuration(&c.Redis.TTL, "REDIS_TTL"))

	setString(&c.Serve.Port, "HTTP_PORT")
	errs = append(errs, setInt(&c.Serve.SyncIntervalHours, "SYNC_INTERVAL_HOURS"))

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s must be a duration like 15s, got %q", key, v)
	}
	*dst = d
	return nil
}

// setList splits a comma-separated variable, dropping blank items.
func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	out := make([]string, 0)
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

// ─── Validation ───────────────────────────────────────────────────────────────

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
			errs = append(errs, errors.New("database: DATABASE_URL or DB_HOST and DB_NAME are required for postgres"))
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database: DB_PATH is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("database: unknown driver %q (want %s or %s)", c.Database.Driver, DriverPostgres, DriverSQLite))
	}

	if c.HH.BaseURL == "" {
		errs = append(errs, errors.New("hh: base_url is required"))
	}
	if c.HH.PerPage < 1 || c.HH.PerPage > 100 {
		errs = append(errs, fmt.Errorf("hh: per_page must be in [1, 100], got %d", c.HH.PerPage))
	}
	if c.HH.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("hh: timeout must be positive, got %s", c.HH.Timeout))
	}
	if len(c.EmployerIDs) == 0 {
		errs = append(errs, errors.New("employer_ids must not be empty"))
	}
	if c.Redis.URL != "" && c.Redis.TTL <= 0 {
		errs = append(errs, fmt.Errorf("redis: ttl must be positive, got %s", c.Redis.TTL))
	}
	if c.Serve.SyncIntervalHours < 1 {
		errs = append(errs, fmt.Errorf("serve: sync_interval_hours must be >= 1, got %d", c.Serve.SyncIntervalHours))
	}

	return errors.Join(errs...)
}

// PostgresURL returns DATABASE_URL, or a URL assembled from the discrete
// connection fields.
func (d DatabaseConfig) PostgresURL() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

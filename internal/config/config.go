package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration shared by the metrics tools.
type Config struct {
	Database Database `yaml:"database"`
	Metrics  Metrics  `yaml:"metrics"`
	Export   Export   `yaml:"export"`
	Logging  Logging  `yaml:"logging"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Name           string `yaml:"name"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	SSLMode        string `yaml:"sslmode"`
	ConnectTimeout int    `yaml:"connect_timeout"` // seconds, 0 = driver default

	// URL is a complete DSN used by the export tool. When empty the export
	// falls back to the discrete fields above.
	URL string `yaml:"url"`
}

// Metrics names the database-side aggregation procedures.
type Metrics struct {
	Schema            string `yaml:"schema"`
	DailyProcedure    string `yaml:"daily_procedure"`
	BackfillProcedure string `yaml:"backfill_procedure"`
}

// Export controls the lead metrics snapshot.
type Export struct {
	Output      string `yaml:"output"`
	Format      string `yaml:"format"` // csv, parquet, sqlite; empty = by extension
	PreviewRows int    `yaml:"preview_rows"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Environment variable names.
const (
	EnvConfigPath     = "METRICS_CONFIG"
	EnvHost           = "PG_HOST"
	EnvPort           = "PG_PORT"
	EnvDatabase       = "PG_DATABASE"
	EnvUser           = "PG_USER"
	EnvPassword       = "PG_PASSWORD"
	EnvSSLMode        = "PG_SSLMODE"
	EnvConnectTimeout = "PG_CONNECT_TIMEOUT"
	EnvDatabaseURL    = "RENDER_DB_URL"
	EnvSchema         = "METRICS_SCHEMA"
	EnvExportOutput   = "METRICS_EXPORT_OUTPUT"
	EnvExportFormat   = "METRICS_EXPORT_FORMAT"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
)

// Defaults returns a Config populated with every optional default.
func Defaults() *Config {
	return &Config{
		Metrics: Metrics{
			Schema:            "metrics",
			DailyProcedure:    "run_daily_metrics",
			BackfillProcedure: "backfill_last_n_days",
		},
		Export: Export{
			Output:      "metrics_daily.csv",
			PreviewRows: 5,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load builds a Config from defaults, the optional YAML file at path and
// then environment variable overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigurationError{Err: fmt.Errorf("reading config file: %w", err)}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigurationError{Err: fmt.Errorf("parsing config file %s: %w", path, err)}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=value pairs from each file into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadEnvFile(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return &ConfigurationError{Err: fmt.Errorf("loading %s: %w", p, err)}
		}
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	var invalid []string

	if v := os.Getenv(EnvHost); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("%s=%q is not a number", EnvPort, v))
		} else {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv(EnvUser); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv(EnvSSLMode); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv(EnvConnectTimeout); v != "" {
		secs, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || secs < 0 {
			invalid = append(invalid, fmt.Sprintf("%s=%q is not a non-negative number", EnvConnectTimeout, v))
		} else {
			cfg.Database.ConnectTimeout = secs
		}
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Database.URL = v
	}

	if v := os.Getenv(EnvSchema); v != "" {
		cfg.Metrics.Schema = v
	}

	if v := os.Getenv(EnvExportOutput); v != "" {
		cfg.Export.Output = v
	}
	if v := os.Getenv(EnvExportFormat); v != "" {
		cfg.Export.Format = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}

	if len(invalid) > 0 {
		return &ConfigurationError{Invalid: invalid}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// ConfigurationError reports required settings that are absent or malformed,
// or a configuration source that could not be read.
type ConfigurationError struct {
	Missing []string
	Invalid []string
	Err     error
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, "; "))
	}
	return "configuration: " + strings.Join(parts, "; ")
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// RequireDatabase checks that every discrete connection setting is present.
func (c *Config) RequireDatabase() error {
	var missing, invalid []string

	db := c.Database
	if db.Host == "" {
		missing = append(missing, EnvHost)
	}
	switch {
	case db.Port == 0:
		missing = append(missing, EnvPort)
	case db.Port < 0 || db.Port > 65535:
		invalid = append(invalid, fmt.Sprintf("%s=%d is out of range", EnvPort, db.Port))
	}
	if db.Name == "" {
		missing = append(missing, EnvDatabase)
	}
	if db.User == "" {
		missing = append(missing, EnvUser)
	}
	if db.Password == "" {
		missing = append(missing, EnvPassword)
	}
	if c.Metrics.Schema == "" || c.Metrics.DailyProcedure == "" || c.Metrics.BackfillProcedure == "" {
		invalid = append(invalid, "metrics schema and procedure names must not be empty")
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return &ConfigurationError{Missing: missing, Invalid: invalid}
	}
	return nil
}

// RequireExportDatabase accepts either a full DSN or the discrete settings.
func (c *Config) RequireExportDatabase() error {
	if c.Database.URL != "" {
		return nil
	}
	if err := c.RequireDatabase(); err != nil {
		var cerr *ConfigurationError
		if errors.As(err, &cerr) && len(cerr.Missing) > 0 {
			cerr.Missing = []string{EnvDatabaseURL + " or " + strings.Join(cerr.Missing, "+")}
		}
		return err
	}
	return nil
}

// ConnString renders the discrete settings as a postgres:// URL.
func (d Database) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(d.ConnectTimeout))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ExportConnString prefers URL and falls back to ConnString.
func (d Database) ExportConnString() string {
	if d.URL != "" {
		return d.URL
	}
	return d.ConnString()
}

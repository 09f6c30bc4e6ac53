// ABOUTME: Process configuration: defaults layered with an optional YAML file and PULSE_ env vars.
// ABOUTME: Precedence, low to high: defaults, file named by PULSE_CONFIG, environment.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/harperreed/pulse/internal/storage"
)

// Config holds everything the CLI and server need.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DBDriver selects the storage backend: sqlite or postgres.
	DBDriver string `koanf:"db_driver"`

	// DBPath is the SQLite database file (sqlite driver only).
	DBPath string `koanf:"db_path"`

	// DBDSN is the connection string for the postgres driver.
	DBDSN string `koanf:"db_dsn"`

	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Fitbit OAuth application credentials.
	FitbitClientID     string `koanf:"fitbit_client_id"`
	FitbitClientSecret string `koanf:"fitbit_client_secret"`
	FitbitRedirectURI  string `koanf:"fitbit_redirect_uri"`

	// LibreLinkUp account credentials for CGM polling.
	LibreEmail    string `koanf:"libre_email"`
	LibrePassword string `koanf:"libre_password"`
	LibreRegion   string `koanf:"libre_region"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		DBDriver:          "sqlite",
		DBPath:            storage.DefaultDBPath(),
		Addr:              ":8080",
		FitbitRedirectURI: "http://localhost:8080/api/auth/callback",
		LibreRegion:       "eu",
	}
}

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables with the PULSE_ prefix.
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("PULSE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// PULSE_DB_DRIVER -> db_driver, and so on; underscores preserved to
	// match the koanf tags.
	envProvider := env.Provider("PULSE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "pulse_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.DBDriver == "postgres" && cfg.DBDSN == "" {
		return nil, errors.New("db_dsn is required with the postgres driver")
	}
	return &cfg, nil
}

// DSN returns the driver-appropriate storage DSN.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DBDSN
	}
	return c.DBPath
}

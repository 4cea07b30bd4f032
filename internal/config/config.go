// Package config loads the review summary server configuration from an
// optional YAML file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/reviewsummary/internal/labelstore"
	"github.com/matthewbaird/reviewsummary/internal/summary"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the server configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database DatabaseConfig  `yaml:"database"`
	Store    StoreConfig     `yaml:"store"`
	Render   summary.Options `yaml:"render"`
	Preview  PreviewConfig   `yaml:"preview"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// MaxBodyBytes caps request bodies, which carry a data document and
	// possibly an inline label document.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	DSN    string `yaml:"dsn"`
}

type StoreConfig struct {
	MaxDocumentBytes int64 `yaml:"max_document_bytes"`
}

type PreviewConfig struct {
	Enabled        bool     `yaml:"enabled"`
	OriginPatterns []string `yaml:"origin_patterns"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    4 << 20,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "file:reviewsummary.db",
		},
		Store: StoreConfig{
			MaxDocumentBytes: labelstore.DefaultMaxBytes,
		},
		Preview: PreviewConfig{
			Enabled: true,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables if
// set. Invalid values are errors.
func applyEnvOverrides(cfg *Config) error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if driver := os.Getenv("SUMMARY_DB_DRIVER"); driver != "" {
		cfg.Database.Driver = driver
	}
	if size := os.Getenv("SUMMARY_MAX_DOCUMENT_BYTES"); size != "" {
		n, err := strconv.ParseInt(size, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SUMMARY_MAX_DOCUMENT_BYTES %q: %w", size, err)
		}
		cfg.Store.MaxDocumentBytes = n
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for the sqlite driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be %q or %q", c.Database.Driver, DriverSQLite, DriverMemory))
	}
	if c.Store.MaxDocumentBytes < labelstore.MinMaxBytes {
		errs = append(errs, fmt.Errorf("store.max_document_bytes %d is below the %d byte minimum",
			c.Store.MaxDocumentBytes, labelstore.MinMaxBytes))
	}
	if c.Server.MaxBodyBytes < c.Store.MaxDocumentBytes {
		errs = append(errs, fmt.Errorf("server.max_body_bytes %d must be at least store.max_document_bytes %d",
			c.Server.MaxBodyBytes, c.Store.MaxDocumentBytes))
	}
	return errors.Join(errs...)
}

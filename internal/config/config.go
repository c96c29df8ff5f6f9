package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"secureNotes/internal/db"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite3" or "postgres"
	Path   string `yaml:"path"`   // SQLite database file path
	DSN    string `yaml:"dsn"`    // Postgres connection string
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address        string        `yaml:"address"`         // gRPC server listen address (e.g., ":50051")
	HealthInterval time.Duration `yaml:"health_interval"` // how often the database is probed
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // logrus level name
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite3", Path: "app.db"},
		GRPC:     GRPCConfig{Address: ":50051", HealthInterval: 10 * time.Second},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins). Variables from a
// .env file in the working directory are loaded first if the file exists.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that apply their own overrides
// (command-line flags) before calling Validate.
func Read(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "load .env")
	}
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)
	c.GRPC.Address = getEnv("GRPC_ADDRESS", c.GRPC.Address)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	interval, err := getEnvDuration("HEALTH_INTERVAL", c.GRPC.HealthInterval)
	if err != nil {
		return err
	}
	c.GRPC.HealthInterval = interval
	return nil
}

// Validate rejects settings the rest of the program cannot run with.
func (c *Config) Validate() error {
	dialect, err := db.ParseDialect(c.Database.Driver)
	if err != nil {
		return err
	}
	switch dialect {
	case db.SQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database path is empty")
		}
	case db.Postgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("DB_DSN is required for the postgres driver")
		}
	}
	if c.GRPC.HealthInterval <= 0 {
		return fmt.Errorf("health interval must be positive, got %s", c.GRPC.HealthInterval)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log level")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return nil
}

// DataSource returns the driver-specific connection string.
func (d DatabaseConfig) DataSource() string {
	if dialect, _ := db.ParseDialect(d.Driver); dialect == db.Postgres {
		return d.DSN
	}
	return d.Path
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvDuration retrieves an environment variable as a duration with a default fallback.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid duration for %s", key)
		}
		return d, nil
	}
	return defaultVal, nil
}

var dsnPassword = regexp.MustCompile(`(password=)\S+`)

func maskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		return u.Redacted()
	}
	return dsnPassword.ReplaceAllString(dsn, "${1}xxxxx")
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s %s, gRPC: %s, health: %s, log: %s/%s}",
		c.Database.Driver, maskDSN(c.Database.DataSource()), c.GRPC.Address, c.GRPC.HealthInterval, c.Log.Level, c.Log.Format)
}

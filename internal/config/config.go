// Package config loads POIMapper settings from an optional YAML file, an
// optional .env file, and POIMAPPER_* environment variables, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config is the top-level configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Export  ExportConfig  `yaml:"export"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port       int    `yaml:"port"`
	StaticPath string `yaml:"static_path"`
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Key    string `yaml:"key"` // Key holding the POI collection

	SQLitePath string `yaml:"sqlite_path"`

	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	RedisPrefix string `yaml:"redis_prefix"`

	PostgresDSN string `yaml:"postgres_dsn"`

	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// ExportConfig configures the export engine.
type ExportConfig struct {
	// CSVEscapeQuotes doubles embedded quotes in CSV fields. Off by default
	// to keep output identical to earlier exports.
	CSVEscapeQuotes bool `yaml:"csv_escape_quotes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       8080,
			StaticPath: "./web/static",
		},
		Storage: StorageConfig{
			Driver:        DriverSQLite,
			Key:           "poimapper_pois",
			SQLitePath:    "./data/poimapper.db",
			RedisAddr:     "localhost:6379",
			RedisPrefix:   "poimapper:",
			MongoDatabase: "poimapper",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), a .env file in the working directory if present, and the
// environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s value %q: %w", key, v, err)
			}
			*dst = n
		}
		return nil
	}

	if err := num("POIMAPPER_PORT", &c.Server.Port); err != nil {
		return err
	}
	str("POIMAPPER_STATIC_PATH", &c.Server.StaticPath)
	str("POIMAPPER_STORAGE", &c.Storage.Driver)
	str("POIMAPPER_STORAGE_KEY", &c.Storage.Key)
	str("POIMAPPER_SQLITE_PATH", &c.Storage.SQLitePath)
	str("POIMAPPER_REDIS_ADDR", &c.Storage.RedisAddr)
	if err := num("POIMAPPER_REDIS_DB", &c.Storage.RedisDB); err != nil {
		return err
	}
	str("POIMAPPER_REDIS_PREFIX", &c.Storage.RedisPrefix)
	str("POIMAPPER_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("POIMAPPER_MONGO_URI", &c.Storage.MongoURI)
	str("POIMAPPER_MONGO_DATABASE", &c.Storage.MongoDatabase)
	str("LOG_LEVEL", &c.Log.Level)

	if v := getenv("POIMAPPER_CSV_ESCAPE_QUOTES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid POIMAPPER_CSV_ESCAPE_QUOTES value %q: %w", v, err)
		}
		c.Export.CSVEscapeQuotes = b
	}
	return nil
}

// Validate checks the configuration for the selected driver.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage key must not be empty")
	}

	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage driver %q requires sqlite_path", c.Storage.Driver)
		}
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage driver %q requires redis_addr", c.Storage.Driver)
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage driver %q requires postgres_dsn", c.Storage.Driver)
		}
	case DriverMongo:
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" {
			return fmt.Errorf("storage driver %q requires mongo_uri and mongo_database", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q (expected: memory, sqlite, redis, postgres, mongo)", c.Storage.Driver)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

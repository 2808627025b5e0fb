package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "poimapper_pois", cfg.Storage.Key)
	assert.False(t, cfg.Export.CSVEscapeQuotes)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poimapper.yml")
	content := `
server:
  port: 9090
storage:
  driver: Redis
  redis_addr: cache:6379
  redis_db: 2
export:
  csv_escape_quotes: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "cache:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 2, cfg.Storage.RedisDB)
	assert.True(t, cfg.Export.CSVEscapeQuotes)
	// Unset fields keep their defaults.
	assert.Equal(t, "poimapper_pois", cfg.Storage.Key)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poimapper.yml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: sqlite\n"), 0644))

	t.Setenv("POIMAPPER_STORAGE", "memory")
	t.Setenv("POIMAPPER_PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid env number", func(t *testing.T) {
		t.Setenv("POIMAPPER_PORT", "eighty")
		_, err := Load("")
		assert.ErrorContains(t, err, "POIMAPPER_PORT")
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"POIMAPPER_POSTGRES_DSN":      "postgres://localhost/poi",
		"POIMAPPER_STORAGE":           "postgres",
		"POIMAPPER_CSV_ESCAPE_QUOTES": "true",
		"POIMAPPER_REDIS_DB":          "4",
	}
	cfg := Default()
	require.NoError(t, cfg.applyEnv(func(k string) string { return env[k] }))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/poi", cfg.Storage.PostgresDSN)
	assert.Equal(t, 4, cfg.Storage.RedisDB)
	assert.True(t, cfg.Export.CSVEscapeQuotes)

	bad := Default()
	err := bad.applyEnv(func(k string) string {
		if k == "POIMAPPER_CSV_ESCAPE_QUOTES" {
			return "maybe"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"memory", func(c *Config) { c.Storage.Driver = DriverMemory }, false},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "etcd" }, true},
		{"empty key", func(c *Config) { c.Storage.Key = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }, true},
		{"mongo without uri", func(c *Config) { c.Storage.Driver = DriverMongo }, true},
		{"mongo with uri", func(c *Config) {
			c.Storage.Driver = DriverMongo
			c.Storage.MongoURI = "mongodb://localhost"
		}, false},
		{"redis without addr", func(c *Config) {
			c.Storage.Driver = DriverRedis
			c.Storage.RedisAddr = ""
		}, true},
		{"sqlite without path", func(c *Config) { c.Storage.SQLitePath = "" }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

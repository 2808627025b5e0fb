// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Netonia/POIMapper/internal/config"
	"github.com/Netonia/POIMapper/internal/storage"
	"github.com/Netonia/POIMapper/internal/storage/memory"
	"github.com/Netonia/POIMapper/internal/storage/mongo"
	"github.com/Netonia/POIMapper/internal/storage/postgres"
	"github.com/Netonia/POIMapper/internal/storage/redis"
	"github.com/Netonia/POIMapper/internal/storage/sqlite"
)

// Open connects to the configured backend.
func Open(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)

	switch cfg.Driver {
	case config.DriverMemory:
		store = memory.New()
	case config.DriverSQLite:
		store, err = sqlite.New(cfg.SQLitePath)
	case config.DriverRedis:
		store, err = redis.New(ctx, &goredis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB}, cfg.RedisPrefix)
	case config.DriverPostgres:
		store, err = postgres.New(ctx, cfg.PostgresDSN)
	case config.DriverMongo:
		store, err = mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Driver, err)
	}

	slog.Info("Storage initialized", "driver", cfg.Driver, "key", cfg.Key)
	return store, nil
}

// Package redis provides a Redis-backed implementation of storage.Store.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Netonia/POIMapper/internal/storage"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "poimapper:"

var _ storage.Store = (*Store)(nil)

// Store keeps JSON values as plain Redis strings under prefix+key.
type Store struct {
	rdb    *goredis.Client
	prefix string
}

// New connects to Redis and verifies the connection with PING.
// An empty prefix selects DefaultPrefix.
func New(ctx context.Context, opts *goredis.Options, prefix string) (*Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &Store{rdb: rdb, prefix: prefix}, nil
}

// Client exposes the underlying client.
func (s *Store) Client() *goredis.Client {
	return s.rdb
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

// Get decodes the value stored under key into dst.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get key %q: %w", key, err)
	}
	if err := storage.Decode(key, data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value under key with no expiry.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	data, err := storage.Encode(value)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

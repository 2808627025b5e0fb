// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrClosed is returned by stores that have been closed.
var ErrClosed = errors.New("store is closed")

// Store defines a key-value contract for JSON-serializable values.
// This abstraction allows swapping storage backends (SQLite, Redis, etc.)
// without changing the repository layer.
type Store interface {
	// Get decodes the value stored under key into dst.
	// Returns false and a nil error if the key does not exist.
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Set encodes value as JSON and stores it under key, replacing any
	// previous value.
	Set(ctx context.Context, key string, value any) error

	// Close releases any resources held by the store.
	Close() error
}

// Encode marshals value for storage.
func Encode(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return data, nil
}

// Decode unmarshals stored data into dst.
func Decode(key string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode value for key %q: %w", key, err)
	}
	return nil
}

// Package mongo provides a MongoDB-backed implementation of storage.Store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Netonia/POIMapper/internal/storage"
)

// CollectionName is the collection holding one document per key.
const CollectionName = "kv"

var _ storage.Store = (*Store)(nil)

// Values are stored as JSON text so every backend shares one encoding.
type document struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store keeps JSON values in a MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New connects to uri and pings the deployment.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(CollectionName),
	}, nil
}

// Get decodes the value stored under key into dst.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get key %q: %w", key, err)
	}
	if err := storage.Decode(key, []byte(doc.Value), dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	data, err := storage.Encode(value)
	if err != nil {
		return err
	}
	doc := document{Key: key, Value: string(data), UpdatedAt: time.Now().UTC()}
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

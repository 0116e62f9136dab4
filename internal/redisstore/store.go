// Package redisstore implements propertystore.Store on top of Redis. Every
// node instance is one hash; each field holds a JSON encoded value.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/instancegraph/internal/propertystore"
)

// DefaultKeyPrefix namespaces the instance hashes.
const DefaultKeyPrefix = "instancegraph:properties:"

// Options configures the Redis connection.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379/0").
	URL string
	// KeyPrefix is prepended to every instance id. Defaults to DefaultKeyPrefix.
	KeyPrefix string
	// ConnectTimeout bounds the initial ping.
	ConnectTimeout time.Duration
}

// Store is a Redis backed propertystore.Store.
type Store struct {
	client *redis.Client
	prefix string
}

var _ propertystore.Store = (*Store)(nil)

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Store{client: client, prefix: opts.KeyPrefix}, nil
}

func (s *Store) key(instanceID string) string {
	return s.prefix + instanceID
}

// Get returns a single property of an instance.
func (s *Store) Get(ctx context.Context, instanceID, key string) (any, bool, error) {
	raw, err := s.client.HGet(ctx, s.key(instanceID), key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read property %s of %s: %w", key, instanceID, err)
	}
	v, err := decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("property %s of %s: %w", key, instanceID, err)
	}
	return v, true, nil
}

// Set writes a single property.
func (s *Store) Set(ctx context.Context, instanceID, key string, value any) error {
	return s.Update(ctx, instanceID, map[string]any{key: value})
}

// Update writes several properties in one HSET.
func (s *Store) Update(ctx context.Context, instanceID string, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	fields := make(map[string]any, len(values))
	for k, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal property %s of %s: %w", k, instanceID, err)
		}
		fields[k] = string(data)
	}
	if err := s.client.HSet(ctx, s.key(instanceID), fields).Err(); err != nil {
		return fmt.Errorf("failed to write properties of %s: %w", instanceID, err)
	}
	return nil
}

// All returns every property of an instance.
func (s *Store) All(ctx context.Context, instanceID string) (map[string]any, error) {
	raw, err := s.client.HGetAll(ctx, s.key(instanceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read properties of %s: %w", instanceID, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("instance %s: %w", instanceID, propertystore.ErrNotFound)
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		decoded, err := decode(v)
		if err != nil {
			return nil, fmt.Errorf("property %s of %s: %w", k, instanceID, err)
		}
		out[k] = decoded
	}
	return out, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func decode(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored value: %w", err)
	}
	return v, nil
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache stores opaque values by key with a per-entry TTL.
// Get returns ErrKeyNotFound when the key is absent or expired.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// GetJSON loads key and decodes it into dst.
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}

// NopCache never stores anything; every Get misses.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, error) { return nil, ErrKeyNotFound }

func (NopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopCache) Delete(context.Context, ...string) error { return nil }

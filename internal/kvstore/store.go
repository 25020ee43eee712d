// Package kvstore is the ephemeral TTL store behind session carts, checkout
// snapshots and rate-limit counters.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is a TTL-bounded key/value store. Get returns domain.ErrNotFound for
// absent or expired keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Incr adds one to the counter at key. The ttl only applies when the
	// counter is created, so a window is never extended by later hits.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// GetJSON decodes the value at key into dst.
func GetJSON(ctx context.Context, s Store, key string, dst interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}

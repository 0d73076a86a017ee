// Package cache provides namespaced key-value stores with per-entry time-to-live.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is a key-value store whose entries expire after their TTL.
// Get returns found=false for missing and expired keys.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// DefaultPrefix namespaces every key written by the service.
const DefaultPrefix = "openpay_"

// Well-known keys.
const (
	KeyRecords = "salaries"
	KeyTitles  = "job_titles"
)

// GetJSON reads key and decodes it into a T.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var zero T
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return zero, false, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("failed to decode cached %q: %w", key, err)
	}
	return v, true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q for cache: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}

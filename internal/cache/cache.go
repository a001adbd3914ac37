// Package cache stores last-known-good provider payloads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trade-journal-assistant/internal/config"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache: key not found")

// Store is a byte-oriented key/value store with per-key expiry.
// A ttl <= 0 keeps the value until it is overwritten.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// GetJSON loads key into dest.
func GetJSON(ctx context.Context, s Store, key string, dest any) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decode cached %q: %w", key, err)
	}
	return nil
}

// SetJSON stores value under key as JSON.
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q for cache: %w", key, err)
	}
	return s.Set(ctx, key, b, ttl)
}

// New returns a Redis store when enabled and reachable, otherwise an in-process store.
func New(ctx context.Context, cfg *config.Redis, logger *zap.Logger) Store {
	if !cfg.Enabled {
		return NewMemory()
	}

	rs, err := NewRedis(ctx, cfg)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory cache",
			zap.String("addr", cfg.Addr), zap.Error(err))
		return NewMemory()
	}
	logger.Info("Connected to Redis", zap.String("addr", cfg.Addr))
	return rs
}

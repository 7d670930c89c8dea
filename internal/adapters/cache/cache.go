// Package cache stores short-lived computed values such as dashboard KPIs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// generationTTL outlives any computation Remember guards.
const generationTTL = 24 * time.Hour

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a byte-value store with per-key expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// GetJSON decodes a cached JSON value into dest.
// POST: returns ErrMiss when nothing usable is cached
func GetJSON(ctx context.Context, c Cache, key string, dest any) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		slog.Warn("cache_event", "event", "decode_failed", "key", key, "error", err)
		return ErrMiss
	}
	return nil
}

// SetJSON encodes value as JSON and caches it for ttl.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, ttl)
}

// Invalidator is the write side of a Cache.
type Invalidator interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func generationKey(key string) string { return key + ":gen" }

// Invalidate drops keys and moves each to a new generation, so a Remember
// already computing one of them does not store its result.
func Invalidate(ctx context.Context, c Invalidator, keys ...string) error {
	var errs []error
	for _, k := range keys {
		if err := c.Set(ctx, generationKey(k), []byte(uuid.NewString()), generationTTL); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Delete(ctx, keys...); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func generation(ctx context.Context, c Cache, key string) string {
	raw, err := c.Get(ctx, generationKey(key))
	if err != nil {
		return ""
	}
	return string(raw)
}

// Remember returns the cached value for key, or computes, caches and returns it.
// Cache failures are logged and never fail the computation. A result whose
// key was invalidated during compute is returned but not cached.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var v T
	if c == nil || ttl <= 0 {
		return compute(ctx)
	}
	err := GetJSON(ctx, c, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrMiss) {
		slog.Warn("cache_event", "event", "get_failed", "key", key, "error", err)
	}
	gen := generation(ctx, c, key)
	v, err = compute(ctx)
	if err != nil {
		return v, err
	}
	if generation(ctx, c, key) != gen {
		slog.Info("cache_event", "event", "stale_skipped", "key", key)
		return v, nil
	}
	if err := SetJSON(ctx, c, key, v, ttl); err != nil {
		slog.Warn("cache_event", "event", "set_failed", "key", key, "error", err)
	}
	return v, nil
}

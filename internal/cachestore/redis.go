// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package cachestore

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/stylescout/internal/metrics"
	"github.com/tomtom215/stylescout/internal/models"
)

// Redis is a shared cache backend for multi-instance deployments.
// Expiry is delegated to the server's key TTL; the stored ExpiresAt is
// kept for observability and defense against clock skew.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a redis-backed store from a connection URL.
// Connection problems surface on first use as ErrUnavailable, not here:
// the cache must not block startup when the backend is down.
func NewRedis(url, prefix string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{
		client: redis.NewClient(opts),
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

// GetMany implements Store.
func (r *Redis) GetMany(ctx context.Context, keys []string) (map[string]Entry, error) {
	if len(keys) == 0 {
		return map[string]Entry{}, nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.prefix + k
	}

	values, err := r.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: mget: %v", ErrUnavailable, err)
	}

	now := time.Now()
	out := make(map[string]Entry, len(keys))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			metrics.CacheMisses.Inc()
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			// A corrupt entry is a miss; it will be overwritten on the
			// next successful verification.
			metrics.CacheMisses.Inc()
			continue
		}
		if !entry.Live(now) {
			metrics.CacheMisses.Inc()
			continue
		}
		metrics.CacheHits.Inc()
		out[keys[i]] = entry
	}
	return out, nil
}

// PutMany implements Store.
func (r *Redis) PutMany(ctx context.Context, products map[string]models.Product) error {
	if len(products) == 0 {
		return nil
	}

	expires := time.Now().Add(r.ttl)
	pipe := r.client.Pipeline()
	for key, p := range products {
		payload, err := json.Marshal(Entry{Product: p, ExpiresAt: expires})
		if err != nil {
			return fmt.Errorf("marshal cache entry: %w", err)
		}
		pipe.Set(ctx, r.prefix+key, payload, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: pipeline exec: %v", ErrUnavailable, err)
	}
	return nil
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close()
}

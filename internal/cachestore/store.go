// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package cachestore persists verified product snapshots keyed by
// canonical key, with a single deployment-wide TTL. The cache is a pure
// performance optimization: when a backend is unavailable the pipeline
// verifies every candidate fresh and only latency suffers.
package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/stylescout/internal/models"
)

// ErrUnavailable wraps backend failures. Callers treat it as "bypass the
// cache", never as a search failure.
var ErrUnavailable = errors.New("cache store unavailable")

// Entry is a cached verified product with its expiry.
type Entry struct {
	Product   models.Product `json:"product"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Live reports whether the entry is still valid at now. An expired entry
// is equivalent to a miss and must never be returned by GetMany.
func (e Entry) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store is the verified-product cache contract. All implementations are
// safe for concurrent use. The TTL is fixed at construction and applies
// uniformly; there is no per-entry override.
type Store interface {
	// GetMany returns the live entries for the given keys. Missing and
	// expired keys are simply absent from the result map.
	GetMany(ctx context.Context, keys []string) (map[string]Entry, error)

	// PutMany stores verified products under their canonical keys with
	// the store's TTL.
	PutMany(ctx context.Context, products map[string]models.Product) error

	// Close releases backend resources.
	Close() error
}

// Options configures a store backend.
type Options struct {
	Backend    string // memory, redis, badger
	TTL        time.Duration
	KeyPrefix  string
	RedisURL   string
	BadgerPath string
}

// New constructs the configured backend.
func New(opts Options) (Store, error) {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	switch opts.Backend {
	case "", "memory":
		return NewMemory(opts.TTL), nil
	case "redis":
		return NewRedis(opts.RedisURL, opts.KeyPrefix, opts.TTL)
	case "badger":
		return NewBadger(opts.BadgerPath, opts.KeyPrefix, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

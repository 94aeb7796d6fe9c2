// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/stylescout/internal/metrics"
	"github.com/tomtom215/stylescout/internal/models"
)

// Badger is an embedded persistent cache backend: verified products
// survive process restarts without an external service. Badger's native
// entry TTL handles expiry.
type Badger struct {
	db     *badger.DB
	prefix string
	ttl    time.Duration
}

// NewBadger opens (or creates) the badger store at path.
func NewBadger(path, prefix string, ttl time.Duration) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is noisy; zerolog covers us
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &Badger{db: db, prefix: prefix, ttl: ttl}, nil
}

// GetMany implements Store.
func (b *Badger) GetMany(_ context.Context, keys []string) (map[string]Entry, error) {
	now := time.Now()
	out := make(map[string]Entry, len(keys))

	err := b.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(b.prefix + key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				metrics.CacheMisses.Inc()
				continue
			}
			if err != nil {
				return err
			}
			var entry Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				metrics.CacheMisses.Inc()
				continue
			}
			if !entry.Live(now) {
				metrics.CacheMisses.Inc()
				continue
			}
			metrics.CacheHits.Inc()
			out[key] = entry
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: badger view: %v", ErrUnavailable, err)
	}
	return out, nil
}

// PutMany implements Store.
func (b *Badger) PutMany(_ context.Context, products map[string]models.Product) error {
	expires := time.Now().Add(b.ttl)

	err := b.db.Update(func(txn *badger.Txn) error {
		for key, p := range products {
			payload, err := json.Marshal(Entry{Product: p, ExpiresAt: expires})
			if err != nil {
				return err
			}
			e := badger.NewEntry([]byte(b.prefix+key), payload).WithTTL(b.ttl)
			if err := txn.SetEntry(e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: badger update: %v", ErrUnavailable, err)
	}
	return nil
}

// Close implements Store.
func (b *Badger) Close() error {
	return b.db.Close()
}

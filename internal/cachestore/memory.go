// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package cachestore

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/stylescout/internal/metrics"
	"github.com/tomtom215/stylescout/internal/models"
)

// cleanupInterval is how often the janitor sweeps expired entries.
const cleanupInterval = 5 * time.Minute

// Memory is a thread-safe in-process TTL cache. The default backend; no
// external service required.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration

	stats Stats

	done chan struct{}
	once sync.Once
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// NewMemory creates a memory store and starts its cleanup janitor.
func NewMemory(ttl time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]Entry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// GetMany implements Store.
func (m *Memory) GetMany(_ context.Context, keys []string) (map[string]Entry, error) {
	now := time.Now()
	out := make(map[string]Entry, len(keys))

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		entry, ok := m.entries[key]
		if !ok {
			m.stats.Misses++
			metrics.CacheMisses.Inc()
			continue
		}
		if !entry.Live(now) {
			delete(m.entries, key)
			m.stats.Misses++
			m.stats.Evictions++
			metrics.CacheMisses.Inc()
			continue
		}
		m.stats.Hits++
		metrics.CacheHits.Inc()
		out[key] = entry
	}
	return out, nil
}

// PutMany implements Store.
func (m *Memory) PutMany(_ context.Context, products map[string]models.Product) error {
	expires := time.Now().Add(m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, p := range products {
		m.entries[key] = Entry{Product: p, ExpiresAt: expires}
	}
	return nil
}

// GetStats returns a copy of the current counters.
func (m *Memory) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the janitor.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.entries {
		if !entry.Live(now) {
			delete(m.entries, key)
			m.stats.Evictions++
		}
	}
}

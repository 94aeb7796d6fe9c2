// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/stylescout/internal/models"
)

func product(title string) models.Product {
	return models.Product{
		Title:      title,
		Price:      120,
		Currency:   "USD",
		URL:        "https://shop.com/" + title,
		Provider:   "serp",
		InStock:    true,
		VerifiedAt: time.Now().UTC(),
	}
}

func TestMemoryPutThenGet(t *testing.T) {
	m := NewMemory(time.Hour)
	defer m.Close()
	ctx := context.Background()

	if err := m.PutMany(ctx, map[string]models.Product{"k1": product("boot")}); err != nil {
		t.Fatalf("PutMany: %v", err)
	}

	got, err := m.GetMany(ctx, []string{"k1", "missing"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(got))
	}
	if got["k1"].Product.Title != "boot" {
		t.Errorf("stored product mismatch: %+v", got["k1"].Product)
	}
}

func TestMemoryExpiredEntryIsMiss(t *testing.T) {
	m := NewMemory(10 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	if err := m.PutMany(ctx, map[string]models.Product{"k1": product("boot")}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(25 * time.Millisecond)

	got, err := m.GetMany(ctx, []string{"k1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Error("expired entry must never be returned as a hit")
	}

	stats := m.GetStats()
	if stats.Misses == 0 {
		t.Error("expired read must count as a miss")
	}
	if stats.Evictions == 0 {
		t.Error("expired read must evict the entry")
	}
}

func TestMemorySweepRemovesExpired(t *testing.T) {
	m := NewMemory(5 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	_ = m.PutMany(ctx, map[string]models.Product{
		"a": product("a"), "b": product("b"),
	})
	time.Sleep(15 * time.Millisecond)
	m.sweep()

	if m.Len() != 0 {
		t.Errorf("sweep left %d expired entries", m.Len())
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	m := NewMemory(time.Hour)
	defer m.Close()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = m.PutMany(ctx, map[string]models.Product{"k": product("boot")})
		}
	}()
	for i := 0; i < 200; i++ {
		_, _ = m.GetMany(ctx, []string{"k"})
	}
	<-done
}

func TestEntryLive(t *testing.T) {
	now := time.Now()
	live := Entry{ExpiresAt: now.Add(time.Minute)}
	dead := Entry{ExpiresAt: now.Add(-time.Minute)}
	if !live.Live(now) {
		t.Error("future expiry must be live")
	}
	if dead.Live(now) {
		t.Error("past expiry must be dead")
	}
	boundary := Entry{ExpiresAt: now}
	if boundary.Live(now) {
		t.Error("entry expiring exactly now is dead")
	}
}

func TestBadgerPutThenGet(t *testing.T) {
	store, err := NewBadger(t.TempDir(), "test:", time.Hour)
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.PutMany(ctx, map[string]models.Product{"k1": product("loafer")}); err != nil {
		t.Fatalf("PutMany: %v", err)
	}

	got, err := store.GetMany(ctx, []string{"k1", "nope"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 1 || got["k1"].Product.Title != "loafer" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(Options{Backend: "memory", TTL: time.Hour})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*Memory); !ok {
		t.Errorf("expected *Memory, got %T", s)
	}

	if _, err := New(Options{Backend: "bogus", TTL: time.Hour}); err == nil {
		t.Error("unknown backend must error")
	}
}

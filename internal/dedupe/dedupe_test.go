// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package dedupe

import (
	"testing"

	"github.com/tomtom215/stylescout/internal/models"
)

func TestKeyNormalizesURLVariants(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"scheme", "http://shop.com/p/boot", "https://shop.com/p/boot"},
		{"www prefix", "https://www.shop.com/p/boot", "https://shop.com/p/boot"},
		{"query", "https://shop.com/p/boot?utm_source=x&ref=y", "https://shop.com/p/boot"},
		{"fragment", "https://shop.com/p/boot#reviews", "https://shop.com/p/boot"},
		{"case", "https://SHOP.com/P/Boot", "https://shop.com/p/boot"},
		{"trailing slash", "https://shop.com/p/boot/", "https://shop.com/p/boot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := Key(models.Candidate{URL: tt.a})
			kb := Key(models.Candidate{URL: tt.b})
			if ka != kb {
				t.Errorf("keys differ: %q vs %q", ka, kb)
			}
		})
	}
}

func TestKeyFallbackWithoutURL(t *testing.T) {
	a := models.Candidate{Title: "Black  Chelsea Boots", Retailer: "Nordstrom"}
	b := models.Candidate{Title: "black chelsea boots", Retailer: "nordstrom"}
	if Key(a) != Key(b) {
		t.Errorf("fallback keys differ: %q vs %q", Key(a), Key(b))
	}

	c := models.Candidate{Title: "black chelsea boots", Retailer: "macys"}
	if Key(a) == Key(c) {
		t.Error("different retailers must not collide")
	}
}

func TestMergeKeepsHigherPriorityTimesRelevance(t *testing.T) {
	// Scenario: two providers return the same URL at $145 and $150; the
	// higher-priority source's candidate survives.
	priorities := Priorities{"serp": 1.0, "catalog": 0.85}
	candidates := []models.Candidate{
		{Provider: "catalog", URL: "https://shop.com/boot", Price: 150, Relevance: 0.9},
		{Provider: "serp", URL: "https://www.shop.com/boot?utm=x", Price: 145, Relevance: 0.9},
	}

	merged := Merge(candidates, priorities)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged candidate, got %d", len(merged))
	}
	if merged[0].Provider != "serp" {
		t.Errorf("survivor = %s, want serp (higher priority)", merged[0].Provider)
	}
	if merged[0].Price != 145 {
		t.Errorf("price = %v, want the winning source's 145", merged[0].Price)
	}
}

func TestMergeTieBreaks(t *testing.T) {
	priorities := Priorities{"a": 1.0, "b": 1.0}

	t.Run("non-empty retailer wins", func(t *testing.T) {
		merged := Merge([]models.Candidate{
			{Provider: "a", URL: "https://shop.com/x", Relevance: 0.5, Price: 100},
			{Provider: "b", URL: "https://shop.com/x", Relevance: 0.5, Price: 100, Retailer: "shop"},
		}, priorities)
		if merged[0].Retailer != "shop" {
			t.Error("candidate with retailer must win the tie")
		}
	})

	t.Run("lower price wins", func(t *testing.T) {
		merged := Merge([]models.Candidate{
			{Provider: "a", URL: "https://shop.com/x", Relevance: 0.5, Price: 120, Retailer: "shop"},
			{Provider: "b", URL: "https://shop.com/x", Relevance: 0.5, Price: 100, Retailer: "shop"},
		}, priorities)
		if merged[0].Price != 100 {
			t.Errorf("price = %v, want 100", merged[0].Price)
		}
	})

	t.Run("known price beats unknown", func(t *testing.T) {
		merged := Merge([]models.Candidate{
			{Provider: "a", URL: "https://shop.com/x", Relevance: 0.5, Retailer: "shop"},
			{Provider: "b", URL: "https://shop.com/x", Relevance: 0.5, Price: 100, Retailer: "shop"},
		}, priorities)
		if merged[0].Price != 100 {
			t.Error("candidate with a claimed price must win over unknown")
		}
	})
}

func TestMergeIdempotent(t *testing.T) {
	priorities := Priorities{"serp": 1.0, "shopping": 0.95, "catalog": 0.85}
	candidates := []models.Candidate{
		{Provider: "serp", URL: "https://a.com/1", Relevance: 0.9},
		{Provider: "shopping", URL: "https://a.com/1?ref=x", Relevance: 0.8, Price: 99},
		{Provider: "catalog", URL: "https://b.com/2", Relevance: 0.7, Price: 50},
		{Provider: "serp", URL: "https://b.com/2/", Relevance: 0.4},
		{Provider: "shopping", Title: "Suede Loafer", Retailer: "macys", Relevance: 0.6},
	}

	once := Merge(candidates, priorities)
	twice := Merge(once, priorities)

	if len(once) != len(twice) {
		t.Fatalf("merge not idempotent: %d then %d", len(once), len(twice))
	}
	for i := range once {
		if Key(once[i]) != Key(twice[i]) {
			t.Errorf("element %d changed key across merges", i)
		}
	}

	seen := map[string]bool{}
	for _, c := range once {
		k := Key(c)
		if seen[k] {
			t.Errorf("duplicate canonical key %q in merged set", k)
		}
		seen[k] = true
	}
}

func TestMergeEmptyInput(t *testing.T) {
	if got := Merge(nil, Priorities{}); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

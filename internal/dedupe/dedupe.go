// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package dedupe collapses candidates that refer to the same product.
// Identity is a canonical key derived from the URL (scheme, query, and
// fragment stripped, host lower-cased) with a retailer+title fallback for
// opaque or missing URLs.
package dedupe

import (
	"net/url"
	"strings"

	"github.com/tomtom215/stylescout/internal/models"
)

// Key computes the canonical identity of a candidate. Candidates with
// equal keys are treated as the same product.
func Key(c models.Candidate) string {
	if k := canonicalURL(c.URL); k != "" {
		return k
	}
	return fallbackKey(c)
}

// canonicalURL normalizes a URL into a stable identity:
// "HTTPS://WWW.Shop.com/p/Boot?utm=x#top" -> "shop.com/p/boot".
// Returns "" when the URL is absent or unparseable.
func canonicalURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")

	path := strings.ToLower(u.EscapedPath())
	path = strings.TrimRight(path, "/")

	return host + path
}

// fallbackKey identifies candidates whose URL is absent or opaque:
// retailer plus whitespace-normalized lower-cased title.
func fallbackKey(c models.Candidate) string {
	title := strings.ToLower(strings.Join(strings.Fields(c.Title), " "))
	retailer := strings.ToLower(strings.TrimSpace(c.Retailer))
	return retailer + "|" + title
}

// Priorities maps provider name to its static trust weight.
type Priorities map[string]float64

func (p Priorities) of(provider string) float64 {
	if w, ok := p[provider]; ok {
		return w
	}
	return 0.5
}

// Merge collapses candidates sharing a canonical key, keeping the one
// with the highest source_priority x relevance. Ties prefer a non-empty
// retailer, then the lower claimed price. Output preserves first-seen key
// order, so merging is deterministic and idempotent.
func Merge(candidates []models.Candidate, priorities Priorities) []models.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	order := make([]string, 0, len(candidates))
	best := make(map[string]models.Candidate, len(candidates))

	for _, c := range candidates {
		key := Key(c)
		current, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = c
			continue
		}
		if better(c, current, priorities) {
			best[key] = c
		}
	}

	out := make([]models.Candidate, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// better reports whether a should replace b as the key's survivor.
func better(a, b models.Candidate, priorities Priorities) bool {
	scoreA := priorities.of(a.Provider) * a.Relevance
	scoreB := priorities.of(b.Provider) * b.Relevance
	if scoreA != scoreB {
		return scoreA > scoreB
	}

	if (a.Retailer != "") != (b.Retailer != "") {
		return a.Retailer != ""
	}

	return claimedPrice(a) < claimedPrice(b)
}

// claimedPrice orders unknown prices last.
func claimedPrice(c models.Candidate) float64 {
	if !c.HasPrice() {
		return float64(1<<62) // effectively +inf for price comparison
	}
	return c.Price
}

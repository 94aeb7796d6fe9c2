// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package models defines the shared data contracts of the discovery
// pipeline: raw provider candidates, search constraints, verification
// records, and verified products. Provider-specific response shapes never
// leak past the adapter boundary; every source normalizes into Candidate.
package models

import "time"

// Candidate is a single unverified hit returned by one provider.
// It is immutable once produced by an adapter and is discarded after the
// deduplicator merges it into the canonical set.
type Candidate struct {
	// Provider identifies which adapter produced this candidate.
	Provider string `json:"provider"`

	// SourceID is the provider's opaque identifier for the hit.
	SourceID string `json:"source_id"`

	Title    string  `json:"title"`
	Price    float64 `json:"price,omitempty"` // 0 = unknown
	Currency string  `json:"currency,omitempty"`
	URL      string  `json:"url"`
	ImageURL string  `json:"image_url,omitempty"`
	Retailer string  `json:"retailer,omitempty"`
	Brand    string  `json:"brand,omitempty"`

	// InStock is the provider's claimed availability. Treated as a hint
	// only; the funnel establishes the authoritative answer.
	InStock bool `json:"in_stock"`

	// Relevance is the provider-assigned relevance score in [0,1].
	Relevance float64 `json:"relevance"`
}

// HasPrice reports whether the provider claimed a price for the candidate.
func (c Candidate) HasPrice() bool {
	return c.Price > 0
}

// Budget holds the soft and hard price caps for a search.
// The soft cap is the preferred ceiling; the hard cap is absolute.
type Budget struct {
	SoftCap  float64 `json:"soft_cap" validate:"gt=0"`
	HardCap  float64 `json:"hard_cap" validate:"gtefield=SoftCap"`
	Currency string  `json:"currency,omitempty"`
}

// Attributes are optional item filters carried through to verification.
type Attributes struct {
	Size   string `json:"size,omitempty"`
	Color  string `json:"color,omitempty"`
	Gender string `json:"gender,omitempty"`
	Brand  string `json:"brand,omitempty"`
}

// Constraints is the immutable input of a single search call.
type Constraints struct {
	Budget        Budget     `json:"budget"`
	RetailerAllow []string   `json:"retailer_allow,omitempty"`
	RetailerDeny  []string   `json:"retailer_deny,omitempty"`
	Attributes    Attributes `json:"attributes,omitempty"`
}

// Product is a verified purchasable item: the snapshot persisted into the
// result cache and returned to callers.
type Product struct {
	Title      string    `json:"title"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	URL        string    `json:"url"` // definitive URL after link hardening
	ImageURL   string    `json:"image_url,omitempty"`
	Retailer   string    `json:"retailer,omitempty"`
	Brand      string    `json:"brand,omitempty"`
	Provider   string    `json:"provider"`
	InStock    bool      `json:"in_stock"`
	VerifiedAt time.Time `json:"verified_at"`
}

// ScoreBreakdown exposes the per-signal components of a ranking score.
type ScoreBreakdown struct {
	Match           float64 `json:"match"`
	PriceFit        float64 `json:"price_fit"`
	Trust           float64 `json:"trust"`
	StockConfidence float64 `json:"stock_confidence"`
}

// RankedProduct is a verified product with its final ranking score.
type RankedProduct struct {
	Product   Product        `json:"product"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// VariantRecord is the authoritative variant answer from a retailer's
// product API (funnel stage 3). Absence of retailer support is not an
// error; the candidate simply continues to browser verification.
type VariantRecord struct {
	SourceID    string  `json:"source_id"`
	Size        string  `json:"size,omitempty"`
	Color       string  `json:"color,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency,omitempty"`
	Purchasable bool    `json:"purchasable"`
}

// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package funnel

import (
	"context"
	"time"

	"github.com/tomtom215/stylescout/internal/browser"
	"github.com/tomtom215/stylescout/internal/models"
)

// BrowserVerifier is stage 4: render the product page in a pooled
// browser context and confirm the variant is actually buyable. This is
// the authoritative availability answer; provider claims and prefilter
// hints only gate entry to it.
type BrowserVerifier struct {
	pool      *browser.Pool
	timeout   time.Duration
	tolerance float64
}

// NewBrowserVerifier wires the stage to a browser pool.
func NewBrowserVerifier(pool *browser.Pool, timeout time.Duration, tolerance float64) *BrowserVerifier {
	return &BrowserVerifier{pool: pool, timeout: timeout, tolerance: tolerance}
}

// Check verifies one candidate. The per-candidate timeout covers page
// work only; waiting for a pool slot is bounded by ctx, so a busy pool
// does not eat the page budget.
func (b *BrowserVerifier) Check(ctx context.Context, c models.Candidate, attrs models.Attributes) (price float64, priceOK bool, reason models.RejectReason, err error) {
	lease, err := b.pool.Acquire(ctx)
	if err != nil {
		return 0, false, "", err
	}
	defer lease.Release()

	pctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	session, err := lease.Open(pctx, c.URL)
	if err != nil {
		return 0, false, "", err
	}

	if attrs.Size != "" || attrs.Color != "" {
		ok, err := session.SelectVariant(pctx, attrs.Size, attrs.Color)
		if err != nil {
			return 0, false, "", err
		}
		if !ok {
			return 0, false, models.ReasonOutOfStock, nil
		}
	}

	out, err := session.IsOutOfStock(pctx)
	if err != nil {
		return 0, false, "", err
	}
	if out {
		return 0, false, models.ReasonOutOfStock, nil
	}

	affordance, err := session.HasPurchaseAffordance(pctx)
	if err != nil {
		return 0, false, "", err
	}
	if !affordance {
		return 0, false, models.ReasonNoAffordance, nil
	}

	observed, priceOK, err := session.ReadPrice(pctx)
	if err != nil {
		return 0, false, "", err
	}
	if priceOK && c.HasPrice() && !models.WithinTolerance(c.Price, observed, b.tolerance) {
		return 0, false, models.ReasonPriceMismatch, nil
	}
	return observed, priceOK, "", nil
}

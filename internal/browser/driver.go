// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package browser provides the stage-4 browser automation collaborator:
// a fixed pool of browser instances, each hosting a fixed set of isolated
// contexts, with scoped acquire/use/release semantics. The Driver and
// Session contracts keep the automation backend swappable; the production
// implementation drives headless Chrome via chromedp.
package browser

import "context"

// Session is one rendered product page inside an isolated browsing
// context. All methods honor ctx cancellation; Close must be called on
// every exit path (the pool lease enforces this).
type Session interface {
	// SelectVariant attempts to select the requested size/color on the
	// page. Empty arguments are not an error; they mean "any variant".
	// Returns false when the requested variant is not offered.
	SelectVariant(ctx context.Context, size, color string) (bool, error)

	// HasPurchaseAffordance reports whether the page offers a purchase
	// action (add to cart / add to bag / buy now).
	HasPurchaseAffordance(ctx context.Context) (bool, error)

	// IsOutOfStock reports whether the page displays an out-of-stock
	// indicator for the selected variant.
	IsOutOfStock(ctx context.Context) (bool, error)

	// ReadPrice extracts the displayed price. ok is false when no price
	// could be found on the page.
	ReadPrice(ctx context.Context) (price float64, ok bool, err error)

	// Close tears the browsing context down.
	Close() error
}

// Driver opens pages inside a specific pooled browser instance.
type Driver interface {
	// Open navigates a fresh context of browser #idx to url and returns
	// the live session once the document settles.
	Open(ctx context.Context, idx int, url string) (Session, error)

	// Close shuts down all browser instances.
	Close() error
}

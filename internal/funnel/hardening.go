// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package funnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/stylescout/internal/models"
)

// errTooManyRedirects aborts a redirect chain past the limit.
var errTooManyRedirects = errors.New("too many redirects")

// Hardener is stage 5: prove the product link is durable before it
// reaches a user. The URL must resolve within the redirect budget,
// answer 2xx, land on the same final URL twice in a row, and not be a
// soft error page.
type Hardener struct {
	client *http.Client
	sem    *semaphore.Weighted
}

// NewHardener builds the stage from the funnel config.
func NewHardener(cfg Config) *Hardener {
	maxRedirects := cfg.HardeningMaxRedirects
	return &Hardener{
		client: &http.Client{
			Timeout: cfg.HardeningTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
		sem: semaphore.NewWeighted(int64(cfg.HardeningConcurrency)),
	}
}

// Check hardens one URL. On pass it returns the final URL after
// redirects, which becomes the product's definitive link.
func (h *Hardener) Check(ctx context.Context, rawURL string) (string, models.RejectReason, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", "", err
	}
	defer h.sem.Release(1)

	first, reason, err := h.fetch(ctx, rawURL)
	if reason != "" || err != nil {
		return "", reason, err
	}

	// Stability: a second fetch of the resolved URL must land in the
	// same place. Session-minted or expiring links fail here; tracking
	// parameters churn per request and do not count as instability.
	second, reason, err := h.fetch(ctx, first)
	if reason != "" || err != nil {
		return "", reason, err
	}
	if stripTracking(second) != stripTracking(first) {
		return "", models.ReasonHTTPError, nil
	}
	return first, "", nil
}

// trackingParams are query keys injected by ad and analytics layers.
var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"msclkid": true,
	"mc_eid":  true,
	"ref":     true,
}

// stripTracking drops tracking query parameters and re-encodes the rest
// in sorted order so two fetches of the same product compare equal.
func stripTracking(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for key := range q {
		if trackingParams[key] || strings.HasPrefix(key, "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// fetch follows rawURL and returns the final URL it settles on.
func (h *Hardener) fetch(ctx context.Context, rawURL string) (string, models.RejectReason, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", models.ReasonHTTPError, nil
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, errTooManyRedirects) {
			return "", models.ReasonHTTPError, nil
		}
		return "", "", fmt.Errorf("hardening fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", models.ReasonHTTPError, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if err != nil {
		return "", "", fmt.Errorf("hardening read: %w", err)
	}
	if looksLikeErrorPage(body) {
		return "", models.ReasonHTTPError, nil
	}
	return resp.Request.URL.String(), "", nil
}

// errorPageMarkers are phrases that identify a soft 404: the server
// said 200 but the product is gone.
var errorPageMarkers = []string{
	"page not found",
	"item not found",
	"product not found",
	"no longer available",
	"this page doesn't exist",
	"error 404",
}

func looksLikeErrorPage(body []byte) bool {
	text := strings.ToLower(string(body))
	for _, marker := range errorPageMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package funnel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/goccy/go-json"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tomtom215/stylescout/internal/models"
)

// maxPrefilterBytes caps how much of a product page the prefilter reads.
const maxPrefilterBytes = 2 << 20

// Prefilter is the cheap structural check: one plain HTTP fetch per
// candidate, no rendering. It only rejects on explicit negative
// signals; a page without structured data passes through to the
// heavier stages.
type Prefilter struct {
	client    *http.Client
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
	tolerance float64
}

// NewPrefilter builds the stage from the funnel config.
func NewPrefilter(cfg Config) *Prefilter {
	return &Prefilter{
		client:    &http.Client{Timeout: cfg.PrefilterTimeout},
		sem:       semaphore.NewWeighted(int64(cfg.PrefilterConcurrency)),
		limiter:   rate.NewLimiter(rate.Limit(cfg.PrefilterRPS), int(cfg.PrefilterRPS)),
		tolerance: cfg.PriceTolerance,
	}
}

// Check fetches the candidate page and inspects its structured
// metadata. On pass it returns the candidate, possibly enriched with an
// image URL the provider did not carry. An empty reason with nil error
// means the candidate passed.
func (p *Prefilter) Check(ctx context.Context, c models.Candidate) (models.Candidate, models.RejectReason, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return c, "", err
	}
	defer p.sem.Release(1)

	if err := p.limiter.Wait(ctx); err != nil {
		return c, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return c, models.ReasonHTTPError, nil
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return c, "", fmt.Errorf("prefilter fetch: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		// Bot walls are a property of the fetch path, not the product;
		// the browser stage may still get through.
		return c, "", nil
	case resp.StatusCode >= 400:
		return c, models.ReasonHTTPError, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPrefilterBytes))
	if err != nil {
		return c, "", fmt.Errorf("prefilter read: %w", err)
	}

	sig := parsePage(body)
	if sig.outOfStock {
		return c, models.ReasonOutOfStock, nil
	}
	if sig.price > 0 && c.HasPrice() && !models.WithinTolerance(c.Price, sig.price, p.tolerance) {
		return c, models.ReasonPriceMismatch, nil
	}
	if c.ImageURL == "" && sig.imageURL != "" {
		c.ImageURL = sig.imageURL
	}
	return c, "", nil
}

// pageSignals is what the prefilter learned from the page metadata.
type pageSignals struct {
	outOfStock bool
	price      float64
	imageURL   string
}

// parsePage extracts availability and price from JSON-LD product
// markup and product/og meta tags, plus a preview image via OpenGraph.
func parsePage(body []byte) pageSignals {
	var sig pageSignals

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err == nil {
		doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			avail, price, found := parseJSONLD(s.Text())
			if !found {
				return true
			}
			sig.outOfStock = availabilityIsOut(avail)
			sig.price = price
			return false
		})

		if sig.price == 0 {
			sig.price = metaPrice(doc)
		}
		if !sig.outOfStock {
			if avail := metaContent(doc,
				`meta[property="product:availability"]`,
				`meta[property="og:availability"]`,
			); avail != "" {
				sig.outOfStock = availabilityIsOut(avail)
			}
		}
	}

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(string(body))); err == nil {
		if len(og.Images) > 0 {
			sig.imageURL = og.Images[0].URL
		}
	}
	return sig
}

// metaPrice reads the price meta tags product pages commonly carry.
func metaPrice(doc *goquery.Document) float64 {
	raw := metaContent(doc,
		`meta[property="product:price:amount"]`,
		`meta[property="og:price:amount"]`,
		`meta[itemprop="price"]`,
	)
	if v, ok := models.ParsePrice(raw); ok {
		return v
	}
	return 0
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && v != "" {
			return v
		}
	}
	return ""
}

// jsonLDOffer is the subset of a schema.org Offer the prefilter reads.
type jsonLDOffer struct {
	Availability string          `json:"availability"`
	Price        json.RawMessage `json:"price"`
}

type jsonLDProduct struct {
	Type   string          `json:"@type"`
	Offers json.RawMessage `json:"offers"`
}

// parseJSONLD pulls availability and price out of a JSON-LD block.
// Returns found=false when the block carries no product offer.
func parseJSONLD(text string) (availability string, price float64, found bool) {
	var nodes []jsonLDProduct
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &nodes); err != nil {
			return "", 0, false
		}
	} else {
		var node jsonLDProduct
		if err := json.Unmarshal([]byte(trimmed), &node); err != nil {
			return "", 0, false
		}
		nodes = append(nodes, node)
	}

	for _, node := range nodes {
		if len(node.Offers) == 0 {
			continue
		}
		var offers []jsonLDOffer
		if strings.HasPrefix(strings.TrimSpace(string(node.Offers)), "[") {
			if err := json.Unmarshal(node.Offers, &offers); err != nil {
				continue
			}
		} else {
			var offer jsonLDOffer
			if err := json.Unmarshal(node.Offers, &offer); err != nil {
				continue
			}
			offers = append(offers, offer)
		}
		for _, offer := range offers {
			price, _ = models.ParsePrice(rawString(offer.Price))
			return offer.Availability, price, true
		}
	}
	return "", 0, false
}

// rawString renders a JSON scalar (string or number) as text.
func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	return strings.Trim(s, `"`)
}

// availabilityIsOut matches the schema.org and OpenGraph availability
// vocabularies against the known negative tokens.
func availabilityIsOut(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.TrimPrefix(v, "https://schema.org/")
	v = strings.TrimPrefix(v, "http://schema.org/")
	v = strings.ReplaceAll(v, " ", "")
	switch v {
	case "outofstock", "soldout", "discontinued", "oos":
		return true
	}
	return false
}

// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tomtom215/stylescout/internal/models"
)

// ShoppingProvider queries a hosted shopping-results API (searchapi.io
// compatible google_shopping engine). Results carry merchant links,
// extracted prices, and seller names.
type ShoppingProvider struct {
	name     string
	baseURL  string
	apiKey   string
	priority float64
	client   *jsonClient
}

// NewShopping creates the shopping-API provider adapter.
func NewShopping(baseURL, apiKey string, priority float64, timeout time.Duration) *ShoppingProvider {
	name := "shopping"
	return &ShoppingProvider{
		name:     name,
		baseURL:  baseURL,
		apiKey:   apiKey,
		priority: priority,
		client:   newJSONClient(name, timeout),
	}
}

func (p *ShoppingProvider) Name() string      { return p.name }
func (p *ShoppingProvider) Priority() float64 { return p.priority }

type shoppingResponse struct {
	ShoppingResults []shoppingResult `json:"shopping_results"`
}

type shoppingResult struct {
	Position       int     `json:"position"`
	Title          string  `json:"title"`
	ProductLink    string  `json:"product_link"`
	Link           string  `json:"link"`
	Price          string  `json:"price"`
	ExtractedPrice float64 `json:"extracted_price"`
	Currency       string  `json:"currency"`
	Seller         string  `json:"seller"`
	Thumbnail      string  `json:"thumbnail"`
	Rating         float64 `json:"rating"`
	Reviews        int     `json:"reviews"`
}

// Search implements Provider.
func (p *ShoppingProvider) Search(ctx context.Context, descriptor string, constraints models.Constraints, maxResults int) ([]models.Candidate, error) {
	q := url.Values{}
	q.Set("engine", "google_shopping")
	q.Set("q", searchTerms(descriptor, constraints.Attributes))
	q.Set("api_key", p.apiKey)
	q.Set("gl", "us")
	q.Set("hl", "en")
	q.Set("num", fmt.Sprintf("%d", maxResults))
	if constraints.Budget.HardCap > 0 {
		// The engine filters server-side; candidates above the hard cap
		// would be rejected by ranking anyway.
		q.Set("price_max", fmt.Sprintf("%.0f", constraints.Budget.HardCap))
	}

	var resp shoppingResponse
	if err := p.client.getJSON(ctx, p.baseURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(resp.ShoppingResults))
	for _, r := range resp.ShoppingResults {
		link := r.ProductLink
		if link == "" {
			link = r.Link
		}
		if link == "" || r.Title == "" {
			continue
		}
		currency := r.Currency
		if currency == "" {
			currency = constraints.Budget.Currency
		}
		candidates = append(candidates, models.Candidate{
			Provider:  p.name,
			SourceID:  fmt.Sprintf("shopping-%d", r.Position),
			Title:     r.Title,
			Price:     r.ExtractedPrice,
			Currency:  currency,
			URL:       link,
			ImageURL:  r.Thumbnail,
			Retailer:  r.Seller,
			InStock:   true,
			Relevance: rankRelevance(r.Position, maxResults),
		})
		if len(candidates) >= maxResults {
			break
		}
	}
	return candidates, nil
}

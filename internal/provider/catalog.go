// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/stylescout/internal/models"
)

// CatalogProvider queries a fashion retailer's catalog search API. Unlike
// the SERP and shopping providers it returns direct retailer product URLs
// and an authoritative per-item stock flag, which makes it the most
// trustworthy source for purchasability despite narrower coverage.
type CatalogProvider struct {
	name     string
	baseURL  string
	apiKey   string
	retailer string
	priority float64
	client   *jsonClient
}

// NewCatalog creates the retailer catalog provider adapter.
func NewCatalog(baseURL, apiKey string, priority float64, timeout time.Duration) *CatalogProvider {
	name := "catalog"
	return &CatalogProvider{
		name:     name,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		retailer: "asos",
		priority: priority,
		client:   newJSONClient(name, timeout),
	}
}

func (p *CatalogProvider) Name() string      { return p.name }
func (p *CatalogProvider) Priority() float64 { return p.priority }

type catalogResponse struct {
	Products  []catalogProduct `json:"products"`
	ItemCount int              `json:"itemCount"`
}

type catalogProduct struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price struct {
		Current struct {
			Value float64 `json:"value"`
		} `json:"current"`
		Currency string `json:"currency"`
	} `json:"price"`
	BrandName string `json:"brandName"`
	URL       string `json:"url"`
	ImageURL  string `json:"imageUrl"`
	IsInStock bool   `json:"isInStock"`
}

// Search implements Provider.
func (p *CatalogProvider) Search(ctx context.Context, descriptor string, constraints models.Constraints, maxResults int) ([]models.Candidate, error) {
	q := url.Values{}
	q.Set("q", searchTerms(descriptor, constraints.Attributes))
	q.Set("limit", fmt.Sprintf("%d", maxResults))
	q.Set("store", "US")
	q.Set("country", "US")
	currency := constraints.Budget.Currency
	if currency == "" {
		currency = "USD"
	}
	q.Set("currency", currency)

	header := http.Header{}
	if p.apiKey != "" {
		header.Set("Authorization", "Bearer "+p.apiKey)
	}

	var resp catalogResponse
	endpoint := p.baseURL + "/products/v2/list?" + q.Encode()
	if err := p.client.getJSON(ctx, endpoint, header, &resp); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(resp.Products))
	for i, prod := range resp.Products {
		if prod.Name == "" || prod.URL == "" {
			continue
		}
		link := prod.URL
		if !strings.HasPrefix(link, "http") {
			link = "https://www.asos.com/" + strings.TrimPrefix(link, "/")
		}
		img := prod.ImageURL
		if img != "" && !strings.HasPrefix(img, "http") {
			img = "https://" + img
		}
		cur := prod.Price.Currency
		if cur == "" {
			cur = currency
		}
		candidates = append(candidates, models.Candidate{
			Provider:  p.name,
			SourceID:  fmt.Sprintf("catalog-%d", prod.ID),
			Title:     prod.Name,
			Price:     prod.Price.Current.Value,
			Currency:  cur,
			URL:       link,
			ImageURL:  img,
			Retailer:  p.retailer,
			Brand:     prod.BrandName,
			InStock:   prod.IsInStock,
			Relevance: rankRelevance(i+1, maxResults),
		})
		if len(candidates) >= maxResults {
			break
		}
	}
	return candidates, nil
}

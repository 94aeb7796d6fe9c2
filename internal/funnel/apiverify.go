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
	"net/url"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stylescout/internal/models"
)

// VariantVerifier answers the authoritative variant question for one
// retailer through its structured product API.
type VariantVerifier interface {
	// Retailer is the lowercase retailer name the verifier handles.
	Retailer() string

	// VerifyVariant checks whether the candidate's requested variant is
	// purchasable and at what price.
	VerifyVariant(ctx context.Context, c models.Candidate, attrs models.Attributes) (models.VariantRecord, error)
}

// VerifierRegistry maps retailer names to their variant verifiers.
// Candidates from retailers without a registered verifier pass through
// the API stage as skipped; absence of support is not a failure.
type VerifierRegistry struct {
	mu sync.RWMutex
	m  map[string]VariantVerifier
}

// NewVerifierRegistry creates an empty registry.
func NewVerifierRegistry() *VerifierRegistry {
	return &VerifierRegistry{m: make(map[string]VariantVerifier)}
}

// Register adds a verifier, replacing any previous one for the same
// retailer.
func (r *VerifierRegistry) Register(v VariantVerifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[strings.ToLower(v.Retailer())] = v
}

// Lookup returns the verifier for retailer, if any.
func (r *VerifierRegistry) Lookup(retailer string) (VariantVerifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[strings.ToLower(retailer)]
	return v, ok
}

// CatalogVerifier verifies variants against a catalog-style stock and
// price endpoint (GET {base}/products/v3/stockprice?productIds=...).
type CatalogVerifier struct {
	retailer string
	baseURL  string
	apiKey   string
	client   *http.Client
}

// NewCatalogVerifier builds a verifier for one retailer's catalog API.
func NewCatalogVerifier(retailer, baseURL, apiKey string) *CatalogVerifier {
	return &CatalogVerifier{
		retailer: retailer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		client:   &http.Client{},
	}
}

// Retailer implements VariantVerifier.
func (v *CatalogVerifier) Retailer() string { return v.retailer }

type stockPriceResponse struct {
	ProductID    json.Number `json:"productId"`
	ProductPrice struct {
		Current struct {
			Value float64 `json:"value"`
		} `json:"current"`
	} `json:"productPrice"`
	Variants []struct {
		VariantID json.Number `json:"variantId"`
		Size      string      `json:"size"`
		Colour    string      `json:"colour"`
		IsInStock bool        `json:"isInStock"`
		Price     struct {
			Current struct {
				Value float64 `json:"value"`
			} `json:"current"`
		} `json:"price"`
	} `json:"variants"`
}

// VerifyVariant implements VariantVerifier.
func (v *CatalogVerifier) VerifyVariant(ctx context.Context, c models.Candidate, attrs models.Attributes) (models.VariantRecord, error) {
	if c.SourceID == "" {
		return models.VariantRecord{}, fmt.Errorf("candidate has no source id for retailer %s", v.retailer)
	}

	q := url.Values{}
	q.Set("productIds", c.SourceID)
	q.Set("store", "US")
	q.Set("currency", "USD")
	endpoint := v.baseURL + "/products/v3/stockprice?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.VariantRecord{}, fmt.Errorf("build stockprice request: %w", err)
	}
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return models.VariantRecord{}, fmt.Errorf("stockprice fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.VariantRecord{}, fmt.Errorf("stockprice status %d", resp.StatusCode)
	}

	var products []stockPriceResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&products); err != nil {
		return models.VariantRecord{}, fmt.Errorf("decode stockprice response: %w", err)
	}
	if len(products) == 0 {
		return models.VariantRecord{SourceID: c.SourceID, Purchasable: false}, nil
	}

	p := products[0]
	record := models.VariantRecord{
		SourceID: c.SourceID,
		Size:     attrs.Size,
		Color:    attrs.Color,
		Price:    p.ProductPrice.Current.Value,
		Currency: "USD",
	}

	// No variant dimension requested: any in-stock variant satisfies.
	if attrs.Size == "" && attrs.Color == "" {
		for _, variant := range p.Variants {
			if variant.IsInStock {
				record.Purchasable = true
				if variant.Price.Current.Value > 0 {
					record.Price = variant.Price.Current.Value
				}
				break
			}
		}
		return record, nil
	}

	for _, variant := range p.Variants {
		if attrs.Size != "" && !strings.EqualFold(variant.Size, attrs.Size) {
			continue
		}
		if attrs.Color != "" && !strings.EqualFold(variant.Colour, attrs.Color) {
			continue
		}
		if variant.IsInStock {
			record.Purchasable = true
			if variant.Price.Current.Value > 0 {
				record.Price = variant.Price.Current.Value
			}
			return record, nil
		}
	}
	return record, nil
}

// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/stylescout/internal/models"
)

// SerpProvider queries a locally hosted SERP-scraper service (openserp
// compatible REST API). It returns organic shopping results with no price
// data; prices are established later by the verification funnel.
type SerpProvider struct {
	name     string
	baseURL  string
	priority float64
	client   *jsonClient
}

// NewSerp creates the SERP provider adapter.
func NewSerp(baseURL string, priority float64, timeout time.Duration) *SerpProvider {
	name := "serp"
	return &SerpProvider{
		name:     name,
		baseURL:  strings.TrimRight(baseURL, "/"),
		priority: priority,
		client:   newJSONClient(name, timeout),
	}
}

func (p *SerpProvider) Name() string      { return p.name }
func (p *SerpProvider) Priority() float64 { return p.priority }

// serpResult is one organic result from the SERP service.
type serpResult struct {
	Rank        int    `json:"rank"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Ad          bool   `json:"ad"`
}

// Search implements Provider.
func (p *SerpProvider) Search(ctx context.Context, descriptor string, constraints models.Constraints, maxResults int) ([]models.Candidate, error) {
	q := url.Values{}
	q.Set("text", searchTerms(descriptor, constraints.Attributes)+" buy online")
	q.Set("lang", "EN")
	q.Set("limit", fmt.Sprintf("%d", maxResults))

	var results []serpResult
	endpoint := p.baseURL + "/google/search?" + q.Encode()
	if err := p.client.getJSON(ctx, endpoint, nil, &results); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(results))
	for _, r := range results {
		if r.URL == "" || r.Title == "" || r.Ad {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Provider:  p.name,
			SourceID:  fmt.Sprintf("serp-%d", r.Rank),
			Title:     r.Title,
			URL:       r.URL,
			Retailer:  retailerFromURL(r.URL),
			Currency:  constraints.Budget.Currency,
			InStock:   true, // unknown; assumed until the funnel decides
			Relevance: rankRelevance(r.Rank, maxResults),
		})
		if len(candidates) >= maxResults {
			break
		}
	}
	return candidates, nil
}

// rankRelevance converts a 1-based result rank into a [0,1] score.
func rankRelevance(rank, limit int) float64 {
	if rank < 1 {
		rank = 1
	}
	if limit < rank {
		limit = rank
	}
	return 1.0 - float64(rank-1)/float64(limit)
}

// retailerFromURL derives a retailer name from a product URL host:
// "https://www.nordstrom.com/p/x" -> "nordstrom".
func retailerFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if i := strings.Index(host, "."); i > 0 {
		return host[:i]
	}
	return host
}

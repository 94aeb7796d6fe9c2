// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/stylescout/internal/cachestore"
	"github.com/tomtom215/stylescout/internal/dedupe"
	"github.com/tomtom215/stylescout/internal/fanout"
	"github.com/tomtom215/stylescout/internal/funnel"
	"github.com/tomtom215/stylescout/internal/health"
	"github.com/tomtom215/stylescout/internal/models"
	"github.com/tomtom215/stylescout/internal/provider"
	"github.com/tomtom215/stylescout/internal/rank"
)

type stubProvider struct {
	name       string
	priority   float64
	candidates []models.Candidate
	err        error
}

func (p *stubProvider) Name() string      { return p.name }
func (p *stubProvider) Priority() float64 { return p.priority }

func (p *stubProvider) Search(context.Context, string, models.Constraints, int) ([]models.Candidate, error) {
	return p.candidates, p.err
}

const productPage = `<html><head>
<script type="application/ld+json">
{"@type":"Product","offers":{"availability":"InStock","price":"120.00"}}
</script>
</head><body><button>Add to Bag</button></body></html>`

func productServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(productPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newController(t *testing.T, store cachestore.Store, providers ...provider.Provider) *Controller {
	t.Helper()

	fcfg := funnel.DefaultConfig()
	fcfg.PrefilterRPS = 1000

	opts := Options{
		GlobalTimeout: 10 * time.Second,
		DefaultTopK:   5,
		MaxTopK:       20,
		DefaultBudget: models.Budget{SoftCap: 150, HardCap: 300, Currency: "USD"},
		Health:        health.DefaultConfig(),
		Priorities:    dedupe.Priorities{"serp": 1.0, "shopping": 0.95, "catalog": 0.85},
	}
	return New(opts,
		fanout.New(providers, 5*time.Second, 10),
		funnel.New(fcfg, store, nil, nil),
		rank.New(rank.DefaultWeights(), opts.Priorities),
	)
}

func cand(providerName, url string, price float64) models.Candidate {
	return models.Candidate{
		Provider:  providerName,
		Title:     "navy wool overcoat",
		Price:     price,
		Currency:  "USD",
		URL:       url,
		Retailer:  "shop",
		InStock:   true,
		Relevance: 0.9,
	}
}

func TestSearchEndToEnd(t *testing.T) {
	srv := productServer(t)
	store := cachestore.NewMemory(time.Hour)
	defer store.Close()

	ctrl := newController(t, store,
		&stubProvider{name: "serp", priority: 1.0, candidates: []models.Candidate{
			cand("serp", srv.URL+"/p/1", 120),
			cand("serp", srv.URL+"/p/2", 130),
		}},
	)

	resp, err := ctrl.Search(context.Background(), Request{Descriptor: "navy wool overcoat"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.SearchID == "" {
		t.Error("search must mint an id")
	}
	if len(resp.Products) != 2 {
		t.Fatalf("expected 2 verified products, got %d", len(resp.Products))
	}
	if resp.Products[0].Product.Price != 120 {
		t.Errorf("cheaper identical item should rank first: %+v", resp.Products[0].Product)
	}
	if resp.Stats.Verified != 2 || resp.Stats.Harvested != 2 {
		t.Errorf("stats off: %+v", resp.Stats)
	}
}

func TestSearchMergesDuplicateURLs(t *testing.T) {
	srv := productServer(t)
	store := cachestore.NewMemory(time.Hour)
	defer store.Close()

	ctrl := newController(t, store,
		&stubProvider{name: "serp", priority: 1.0, candidates: []models.Candidate{
			cand("serp", srv.URL+"/p/1", 120),
		}},
		&stubProvider{name: "catalog", priority: 0.85, candidates: []models.Candidate{
			cand("catalog", srv.URL+"/p/1/", 120), // same product, trailing slash
		}},
	)

	resp, err := ctrl.Search(context.Background(), Request{Descriptor: "navy wool overcoat"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Products) != 1 {
		t.Fatalf("duplicates must merge, got %d products", len(resp.Products))
	}
	if resp.Products[0].Product.Provider != "serp" {
		t.Errorf("higher-priority source must win the merge, got %q", resp.Products[0].Product.Provider)
	}
	if resp.Stats.Harvested != 2 || resp.Stats.Deduplicated != 1 {
		t.Errorf("stats off: %+v", resp.Stats)
	}
}

func TestSearchSurvivesProviderFailure(t *testing.T) {
	srv := productServer(t)
	store := cachestore.NewMemory(time.Hour)
	defer store.Close()

	ctrl := newController(t, store,
		&stubProvider{name: "serp", priority: 1.0, candidates: []models.Candidate{
			cand("serp", srv.URL+"/p/1", 120),
		}},
		&stubProvider{name: "shopping", priority: 0.95,
			err: models.NewProviderError("shopping", models.ErrKindAuth, nil)},
	)

	resp, err := ctrl.Search(context.Background(), Request{Descriptor: "navy wool overcoat"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Products) != 1 {
		t.Fatalf("one healthy provider should still yield results, got %d", len(resp.Products))
	}
	if resp.Stats.ProvidersFailed != 1 {
		t.Errorf("stats must record the failed provider: %+v", resp.Stats)
	}
}

type countingProvider struct {
	stubProvider
	calls atomic.Int32
}

func (p *countingProvider) Search(ctx context.Context, descriptor string, constraints models.Constraints, limit int) ([]models.Candidate, error) {
	p.calls.Add(1)
	return p.stubProvider.Search(ctx, descriptor, constraints, limit)
}

func TestSessionSkipsHardFailedProviderAcrossSearches(t *testing.T) {
	srv := productServer(t)
	store := cachestore.NewMemory(time.Hour)
	defer store.Close()

	failing := &countingProvider{stubProvider: stubProvider{
		name:     "shopping",
		priority: 0.95,
		err:      models.NewProviderError("shopping", models.ErrKindAuth, nil),
	}}
	ctrl := newController(t, store,
		&stubProvider{name: "serp", priority: 1.0, candidates: []models.Candidate{
			cand("serp", srv.URL+"/p/1", 120),
		}},
		failing,
	)

	session := ctrl.NewSession()
	first, err := session.Search(context.Background(), Request{Descriptor: "navy wool overcoat"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Stats.ProvidersFailed != 1 {
		t.Fatalf("first search must record the hard failure: %+v", first.Stats)
	}

	second, err := session.Search(context.Background(), Request{Descriptor: "brown leather boots"})
	if err != nil {
		t.Fatal(err)
	}
	if got := failing.calls.Load(); got != 1 {
		t.Errorf("hard-failed provider must not be retried within the session, called %d times", got)
	}
	if second.Stats.ProvidersSkipped != 1 {
		t.Errorf("second search must record the skip: %+v", second.Stats)
	}

	// A fresh session starts with clean health state.
	if _, err := ctrl.Search(context.Background(), Request{Descriptor: "navy wool overcoat"}); err != nil {
		t.Fatal(err)
	}
	if got := failing.calls.Load(); got != 2 {
		t.Errorf("a new session must try the provider again, total calls %d", got)
	}
}

func TestSearchFiltersConstraintViolations(t *testing.T) {
	srv := productServer(t)
	store := cachestore.NewMemory(time.Hour)
	defer store.Close()

	overpriced := cand("serp", srv.URL+"/p/expensive", 500)
	denied := cand("serp", srv.URL+"/p/denied", 120)
	denied.Retailer = "badshop"

	ctrl := newController(t, store,
		&stubProvider{name: "serp", priority: 1.0, candidates: []models.Candidate{
			cand("serp", srv.URL+"/p/1", 120),
			overpriced,
			denied,
		}},
	)

	resp, err := ctrl.Search(context.Background(), Request{
		Descriptor: "navy wool overcoat",
		Constraints: models.Constraints{
			Budget:       models.Budget{SoftCap: 150, HardCap: 300},
			RetailerDeny: []string{"BadShop"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Products) != 1 {
		t.Fatalf("expected 1 product after filtering, got %d", len(resp.Products))
	}
	if resp.Stats.Filtered != 2 {
		t.Errorf("expected 2 filtered candidates: %+v", resp.Stats)
	}
	for _, record := range resp.Records {
		if record.Verdict == models.VerdictRejected && record.Reason == models.ReasonFilteredOut {
			return
		}
	}
	t.Error("filtered candidates must carry a filtered_out record")
}

func TestSearchFiltersBrandMismatch(t *testing.T) {
	srv := productServer(t)
	store := cachestore.NewMemory(time.Hour)
	defer store.Close()

	wrongBrand := cand("catalog", srv.URL+"/p/wrong", 120)
	wrongBrand.Brand = "OtherBrand"
	rightBrand := cand("catalog", srv.URL+"/p/right", 120)
	rightBrand.Brand = "clarks" // case must not matter
	unbranded := cand("catalog", srv.URL+"/p/unknown", 120)

	ctrl := newController(t, store,
		&stubProvider{name: "catalog", priority: 0.85, candidates: []models.Candidate{
			wrongBrand, rightBrand, unbranded,
		}},
	)

	resp, err := ctrl.Search(context.Background(), Request{
		Descriptor:  "chelsea boots",
		Constraints: models.Constraints{Attributes: models.Attributes{Brand: "Clarks"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	// The mismatched brand is dropped; the matching and the unbranded
	// candidate go on to verification.
	if len(resp.Products) != 2 {
		t.Fatalf("expected 2 products after brand filtering, got %d", len(resp.Products))
	}
	if resp.Stats.Filtered != 1 {
		t.Errorf("expected 1 filtered candidate: %+v", resp.Stats)
	}
	for _, ranked := range resp.Products {
		if ranked.Product.Brand == "OtherBrand" {
			t.Errorf("brand-mismatched product must not surface: %+v", ranked.Product)
		}
	}
}

func TestSearchEmptyResultIsValid(t *testing.T) {
	store := cachestore.NewMemory(time.Hour)
	defer store.Close()

	ctrl := newController(t, store,
		&stubProvider{name: "serp", priority: 1.0},
	)

	resp, err := ctrl.Search(context.Background(), Request{Descriptor: "impossible item"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Products) != 0 {
		t.Errorf("expected empty result, got %d", len(resp.Products))
	}
}

func TestSearchSecondCallHitsCache(t *testing.T) {
	srv := productServer(t)
	store := cachestore.NewMemory(time.Hour)
	defer store.Close()

	ctrl := newController(t, store,
		&stubProvider{name: "serp", priority: 1.0, candidates: []models.Candidate{
			cand("serp", srv.URL+"/p/1", 120),
		}},
	)

	if _, err := ctrl.Search(context.Background(), Request{Descriptor: "navy wool overcoat"}); err != nil {
		t.Fatal(err)
	}
	resp, err := ctrl.Search(context.Background(), Request{Descriptor: "navy wool overcoat"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Stats.CacheHits != 1 {
		t.Errorf("second search must hit the cache: %+v", resp.Stats)
	}
}

func TestApplyDefaults(t *testing.T) {
	ctrl := newController(t, nil)

	req := ctrl.applyDefaults(Request{Descriptor: "coat"})
	if req.TopK != 5 {
		t.Errorf("default top_k = %d, want 5", req.TopK)
	}
	if req.Constraints.Budget.SoftCap != 150 || req.Constraints.Budget.HardCap != 300 {
		t.Errorf("default budget not applied: %+v", req.Constraints.Budget)
	}

	req = ctrl.applyDefaults(Request{TopK: 99})
	if req.TopK != 20 {
		t.Errorf("top_k must clamp to max, got %d", req.TopK)
	}
}

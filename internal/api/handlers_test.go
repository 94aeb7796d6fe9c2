// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stylescout/internal/cachestore"
	"github.com/tomtom215/stylescout/internal/dedupe"
	"github.com/tomtom215/stylescout/internal/fanout"
	"github.com/tomtom215/stylescout/internal/funnel"
	"github.com/tomtom215/stylescout/internal/health"
	"github.com/tomtom215/stylescout/internal/models"
	"github.com/tomtom215/stylescout/internal/pipeline"
	"github.com/tomtom215/stylescout/internal/provider"
	"github.com/tomtom215/stylescout/internal/rank"
)

type stubProvider struct {
	candidates []models.Candidate
}

func (p *stubProvider) Name() string      { return "serp" }
func (p *stubProvider) Priority() float64 { return 1.0 }

func (p *stubProvider) Search(context.Context, string, models.Constraints, int) ([]models.Candidate, error) {
	return p.candidates, nil
}

const productPage = `<html><head>
<script type="application/ld+json">
{"@type":"Product","offers":{"availability":"InStock","price":"120.00"}}
</script>
</head><body><button>Buy Now</button></body></html>`

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(productPage))
	}))
	t.Cleanup(pages.Close)

	store := cachestore.NewMemory(time.Hour)
	t.Cleanup(func() { store.Close() })

	fcfg := funnel.DefaultConfig()
	fcfg.PrefilterRPS = 1000

	providers := []provider.Provider{&stubProvider{candidates: []models.Candidate{{
		Provider:  "serp",
		Title:     "navy wool overcoat",
		Price:     120,
		Currency:  "USD",
		URL:       pages.URL + "/p/1",
		Retailer:  "shop",
		InStock:   true,
		Relevance: 0.9,
	}}}}

	controller := pipeline.New(
		pipeline.Options{
			GlobalTimeout: 10 * time.Second,
			DefaultTopK:   5,
			MaxTopK:       20,
			DefaultBudget: models.Budget{SoftCap: 150, HardCap: 300, Currency: "USD"},
			Health:        health.DefaultConfig(),
			Priorities:    dedupe.Priorities{"serp": 1.0},
		},
		fanout.New(providers, 5*time.Second, 10),
		funnel.New(fcfg, store, nil, nil),
		rank.New(rank.DefaultWeights(), map[string]float64{"serp": 1.0}),
	)

	router := NewRouter(NewHandler(controller), &MiddlewareConfig{
		RateLimitDisabled: true,
	})
	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv
}

func postSearch(t *testing.T, srv *httptest.Server, body string) (*http.Response, APIResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/products/search", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, envelope
}

func TestProductSearch(t *testing.T) {
	srv := testServer(t)

	resp, envelope := postSearch(t, srv, `{"descriptor":"navy wool overcoat","top_k":3}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !envelope.Success {
		t.Fatalf("expected success, got %+v", envelope.Error)
	}

	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %T", envelope.Data)
	}
	products, ok := data["products"].([]interface{})
	if !ok || len(products) != 1 {
		t.Fatalf("expected 1 product, got %v", data["products"])
	}
	if envelope.Meta == nil || envelope.Meta.RequestID == "" {
		t.Error("meta must carry a request id")
	}
}

func TestProductSearchBatchDescriptors(t *testing.T) {
	srv := testServer(t)

	resp, envelope := postSearch(t, srv, `{"descriptors":["navy wool overcoat","brown leather boots"],"top_k":3}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !envelope.Success {
		t.Fatalf("expected success, got %+v", envelope.Error)
	}

	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %T", envelope.Data)
	}
	searches, ok := data["searches"].([]interface{})
	if !ok || len(searches) != 2 {
		t.Fatalf("expected 2 search results, got %v", data["searches"])
	}
	for i, s := range searches {
		result, ok := s.(map[string]interface{})
		if !ok {
			t.Fatalf("search %d has shape %T", i, s)
		}
		if result["search_id"] == "" {
			t.Errorf("search %d missing its id", i)
		}
	}
}

func TestProductSearchRequiresSomeDescriptor(t *testing.T) {
	srv := testServer(t)

	resp, envelope := postSearch(t, srv, `{"top_k":3}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidationFailed {
		t.Errorf("expected validation failure, got %+v", envelope.Error)
	}
}

func TestProductSearchRejectsBadJSON(t *testing.T) {
	srv := testServer(t)

	resp, envelope := postSearch(t, srv, `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Success || envelope.Error == nil || envelope.Error.Code != ErrCodeBadRequest {
		t.Errorf("unexpected envelope: %+v", envelope)
	}
}

func TestProductSearchValidatesDescriptor(t *testing.T) {
	srv := testServer(t)

	resp, envelope := postSearch(t, srv, `{"descriptor":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidationFailed {
		t.Errorf("expected validation failure, got %+v", envelope.Error)
	}
}

func TestProductSearchValidatesBudget(t *testing.T) {
	srv := testServer(t)

	resp, _ := postSearch(t, srv, `{"descriptor":"coat","budget":{"soft_cap":200,"hard_cap":100}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("inverted budget must fail validation, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/healthz/live", "/healthz/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/healthz/live")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options header")
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options header")
	}
}

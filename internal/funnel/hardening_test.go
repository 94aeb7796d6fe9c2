// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package funnel

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/stylescout/internal/models"
)

func TestHardenerPassesStableLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/p/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>Wool overcoat</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := NewHardener(testConfig())
	final, reason, err := h.Check(context.Background(), srv.URL+"/p/1")
	if err != nil || reason != "" {
		t.Fatalf("unexpected outcome: %q %v", reason, err)
	}
	if final != srv.URL+"/p/1" {
		t.Errorf("final URL = %q", final)
	}
}

func TestHardenerResolvesRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/p/1", http.StatusFound)
	})
	mux.HandleFunc("/p/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("product"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := NewHardener(testConfig())
	final, reason, err := h.Check(context.Background(), srv.URL+"/short")
	if err != nil || reason != "" {
		t.Fatalf("unexpected outcome: %q %v", reason, err)
	}
	if final != srv.URL+"/p/1" {
		t.Errorf("final URL must be the redirect target, got %q", final)
	}
}

func TestHardenerRejectsRedirectLoops(t *testing.T) {
	var srv *httptest.Server
	hops := 0
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", hops), http.StatusFound)
	}))
	defer srv.Close()

	h := NewHardener(testConfig())
	_, reason, err := h.Check(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if reason != models.ReasonHTTPError {
		t.Errorf("reason = %q, want http_error past the redirect budget", reason)
	}
}

func TestHardenerIgnoresTrackingParamChurn(t *testing.T) {
	// Ad-click ids are single-use: refetching a link re-mints them, so
	// the two hardening fetches settle on URLs differing only in
	// tracking params. That is not instability.
	n := 0
	issued := map[string]bool{}
	mux := http.NewServeMux()
	mux.HandleFunc("/p/1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/product/boots", http.StatusFound)
	})
	mux.HandleFunc("/product/boots", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("gclid")
		if id != "" && !issued[id] {
			issued[id] = true
			w.Write([]byte("product"))
			return
		}
		n++
		http.Redirect(w, r, fmt.Sprintf("/product/boots?color=black&gclid=g%d", n), http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := NewHardener(testConfig())
	final, reason, err := h.Check(context.Background(), srv.URL+"/p/1")
	if err != nil || reason != "" {
		t.Fatalf("tracking-only churn must pass: %q %v", reason, err)
	}
	if final == "" {
		t.Error("expected a definitive final URL")
	}
}

func TestStripTracking(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://shop.example/p?utm_source=x&utm_campaign=y&color=black", "https://shop.example/p?color=black"},
		{"https://shop.example/p?gclid=abc&fbclid=def", "https://shop.example/p"},
		{"https://shop.example/p?size=10&ref=homepage", "https://shop.example/p?size=10"},
		{"https://shop.example/p?color=black", "https://shop.example/p?color=black"},
		{"https://shop.example/p", "https://shop.example/p"},
	}
	for _, tt := range tests {
		if got := stripTracking(tt.in); got != tt.want {
			t.Errorf("stripTracking(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHardenerRejectsHTTPErrors(t *testing.T) {
	srv := serve(t, 500, "boom")
	h := NewHardener(testConfig())

	_, reason, err := h.Check(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if reason != models.ReasonHTTPError {
		t.Errorf("reason = %q, want http_error", reason)
	}
}

func TestHardenerRejectsSoftErrorPages(t *testing.T) {
	srv := serve(t, 200, "<html><body><h1>Page Not Found</h1></body></html>")
	h := NewHardener(testConfig())

	_, reason, err := h.Check(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if reason != models.ReasonHTTPError {
		t.Errorf("soft 404 must reject, got %q", reason)
	}
}

func TestHardenerRejectsUnstableFinalURL(t *testing.T) {
	// Session URLs are single-use: refetching one mints a new session,
	// so the second hardening fetch settles on a different final URL.
	n := 0
	seen := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path != "/p" && !seen[path] {
			seen[path] = true
			w.Write([]byte("ok"))
			return
		}
		n++
		http.Redirect(w, r, fmt.Sprintf("/session/%d", n), http.StatusFound)
	}))
	defer srv.Close()

	h := NewHardener(testConfig())
	_, reason, err := h.Check(context.Background(), srv.URL+"/p")
	if err != nil {
		t.Fatal(err)
	}
	if reason != models.ReasonHTTPError {
		t.Errorf("session-minted links must reject, got %q", reason)
	}
}

// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package main is the entry point for the Stylescout server.
//
// Stylescout discovers outfit products across multiple search providers,
// verifies each candidate through a staged funnel (metadata prefilter,
// retailer API check, headless browser verification, link hardening) and
// returns a ranked shortlist of purchasable products.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 with defaults, YAML file, environment variables
//  2. Cache: verified-product store (memory, Redis, or BadgerDB)
//  3. Providers: enabled search provider adapters (SERP, shopping, catalog)
//  4. Browser pool: persistent headless Chrome fleet for stage-4 verification
//  5. Funnel, ranking engine and pipeline controller
//  6. HTTP server: chi router with health, metrics and search endpoints
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (STYLESCOUT_ prefix)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// Providers are opt-in; only the local SERP service is enabled by default:
//
//	export STYLESCOUT_PROVIDERS_SHOPPING_ENABLED=true
//	export STYLESCOUT_PROVIDERS_SHOPPING_API_KEY=your-key
//	export STYLESCOUT_CACHE_BACKEND=redis
//	export STYLESCOUT_CACHE_REDIS_URL=redis://localhost:6379/0
//	./stylescout
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight searches to complete (10s timeout)
//   - Closes the browser pool and cache backend
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/stylescout/internal/api"
	"github.com/tomtom215/stylescout/internal/browser"
	"github.com/tomtom215/stylescout/internal/cachestore"
	"github.com/tomtom215/stylescout/internal/config"
	"github.com/tomtom215/stylescout/internal/dedupe"
	"github.com/tomtom215/stylescout/internal/fanout"
	"github.com/tomtom215/stylescout/internal/funnel"
	"github.com/tomtom215/stylescout/internal/health"
	"github.com/tomtom215/stylescout/internal/logging"
	"github.com/tomtom215/stylescout/internal/models"
	"github.com/tomtom215/stylescout/internal/pipeline"
	"github.com/tomtom215/stylescout/internal/provider"
	"github.com/tomtom215/stylescout/internal/rank"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Stylescout")

	// Verified-product cache
	store, err := cachestore.New(cachestore.Options{
		Backend:    cfg.Cache.Backend,
		TTL:        cfg.Cache.TTL,
		KeyPrefix:  cfg.Cache.KeyPrefix,
		RedisURL:   cfg.Cache.RedisURL,
		BadgerPath: cfg.Cache.BadgerPath,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize cache backend")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache backend")
		}
	}()
	logging.Info().Str("backend", cfg.Cache.Backend).Dur("ttl", cfg.Cache.TTL).Msg("Cache initialized")

	providers, priorities := buildProviders(cfg)
	if len(providers) == 0 {
		logging.Fatal().Msg("No providers enabled; enable at least one provider")
	}

	// Stage-4 browser pool. Chrome processes are spawned lazily on first
	// verification, so startup does not require a Chrome binary.
	driver, err := browser.NewChromeDriver(browser.ChromeConfig{
		Browsers:          cfg.Browser.PoolSize,
		Headless:          cfg.Browser.Headless,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize browser driver")
	}
	pool, err := browser.NewPool(driver, cfg.Browser.PoolSize, cfg.Browser.ContextsPerBrowser)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize browser pool")
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing browser pool")
		}
	}()
	logging.Info().
		Int("browsers", cfg.Browser.PoolSize).
		Int("contexts_per_browser", cfg.Browser.ContextsPerBrowser).
		Msg("Browser pool initialized")

	funnelCfg := funnel.Config{
		PrefilterConcurrency:  cfg.Funnel.PrefilterConcurrency,
		PrefilterTimeout:      cfg.Funnel.PrefilterTimeout,
		PrefilterRPS:          cfg.Funnel.PrefilterRPS,
		PriceTolerance:        cfg.Funnel.PriceTolerance,
		APIVerifyTimeout:      cfg.Funnel.APIVerifyTimeout,
		BrowserTimeout:        cfg.Funnel.BrowserTimeout,
		HardeningTimeout:      cfg.Funnel.HardeningTimeout,
		HardeningMaxRedirects: cfg.Funnel.HardeningMaxRedirects,
		HardeningConcurrency:  cfg.Funnel.HardeningConcurrency,
	}

	verifiers := funnel.NewVerifierRegistry()
	if cfg.Providers.Catalog.Enabled {
		verifiers.Register(funnel.NewCatalogVerifier(
			"asos", cfg.Providers.Catalog.BaseURL, cfg.Providers.Catalog.APIKey))
	}

	browserVerifier := funnel.NewBrowserVerifier(pool, cfg.Funnel.BrowserTimeout, cfg.Funnel.PriceTolerance)

	controller := pipeline.New(
		pipeline.Options{
			GlobalTimeout: cfg.Search.GlobalTimeout,
			DefaultTopK:   cfg.Search.DefaultTopK,
			MaxTopK:       cfg.Search.MaxTopK,
			DefaultBudget: models.Budget{
				SoftCap:  cfg.Search.DefaultSoftCap,
				HardCap:  cfg.Search.DefaultHardCap,
				Currency: cfg.Search.Currency,
			},
			Health: health.Config{
				TimeoutThreshold: cfg.Health.TimeoutThreshold,
				Cooldown:         cfg.Health.Cooldown,
			},
			Priorities: dedupe.Priorities(priorities),
		},
		fanout.New(providers, providerTimeout(cfg), maxResults(cfg)),
		funnel.New(funnelCfg, store, verifiers, browserVerifier),
		rank.New(rank.Weights{
			Match:           cfg.Ranking.WeightMatch,
			PriceFit:        cfg.Ranking.WeightPriceFit,
			Trust:           cfg.Ranking.WeightTrust,
			StockConfidence: cfg.Ranking.WeightStock,
		}, priorities),
	)

	router := api.NewRouter(api.NewHandler(controller), &api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		// Searches can run up to the global timeout; leave headroom for
		// response writing.
		WriteTimeout: cfg.Search.GlobalTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// buildProviders constructs the enabled provider adapters and their
// trust priorities, shared by deduplication and ranking.
func buildProviders(cfg *config.Config) ([]provider.Provider, map[string]float64) {
	var providers []provider.Provider
	priorities := make(map[string]float64)

	if p := cfg.Providers.Serp; p.Enabled {
		providers = append(providers, provider.NewSerp(p.BaseURL, p.Priority, p.Timeout))
		priorities["serp"] = p.Priority
		logging.Info().Str("provider", "serp").Str("base_url", p.BaseURL).Msg("Provider enabled")
	}
	if p := cfg.Providers.Shopping; p.Enabled {
		providers = append(providers, provider.NewShopping(p.BaseURL, p.APIKey, p.Priority, p.Timeout))
		priorities["shopping"] = p.Priority
		logging.Info().Str("provider", "shopping").Msg("Provider enabled")
	}
	if p := cfg.Providers.Catalog; p.Enabled {
		providers = append(providers, provider.NewCatalog(p.BaseURL, p.APIKey, p.Priority, p.Timeout))
		priorities["catalog"] = p.Priority
		logging.Info().Str("provider", "catalog").Msg("Provider enabled")
	}

	return providers, priorities
}

// providerTimeout returns the fan-out per-provider timeout: the largest
// timeout among enabled providers, so no adapter is cut short.
func providerTimeout(cfg *config.Config) time.Duration {
	timeout := time.Duration(0)
	for _, p := range enabledProviders(cfg) {
		if p.Timeout > timeout {
			timeout = p.Timeout
		}
	}
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return timeout
}

// maxResults returns the per-provider result cap for fan-out.
func maxResults(cfg *config.Config) int {
	max := 0
	for _, p := range enabledProviders(cfg) {
		if p.MaxResults > max {
			max = p.MaxResults
		}
	}
	if max <= 0 {
		max = 20
	}
	return max
}

func enabledProviders(cfg *config.Config) []config.ProviderConfig {
	var out []config.ProviderConfig
	for _, p := range []config.ProviderConfig{
		cfg.Providers.Serp, cfg.Providers.Shopping, cfg.Providers.Catalog,
	} {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

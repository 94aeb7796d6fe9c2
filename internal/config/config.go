// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package config loads and validates application configuration via Koanf v2
// with layered sources: built-in defaults, an optional YAML file, then
// environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the stylescout server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Cache     CacheConfig     `koanf:"cache"`
	Providers ProvidersConfig `koanf:"providers"`
	Health    HealthConfig    `koanf:"health"`
	Funnel    FunnelConfig    `koanf:"funnel"`
	Browser   BrowserConfig   `koanf:"browser"`
	Ranking   RankingConfig   `koanf:"ranking"`
	Search    SearchConfig    `koanf:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// CacheConfig selects and tunes the verified-product cache backend.
// The TTL is fixed per deployment and applies uniformly to all entries.
type CacheConfig struct {
	// Backend is one of: memory, redis, badger.
	Backend string `koanf:"backend"`

	// TTL for verified product snapshots. Default: 1 hour.
	TTL time.Duration `koanf:"ttl"`

	// KeyPrefix namespaces cache keys in shared stores.
	KeyPrefix string `koanf:"key_prefix"`

	// RedisURL is the connection URL for the redis backend.
	RedisURL string `koanf:"redis_url"`

	// BadgerPath is the data directory for the badger backend.
	BadgerPath string `koanf:"badger_path"`
}

// ProviderConfig configures one search provider adapter.
type ProviderConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`

	// Priority is the static per-provider trust weight in [0,1] used by
	// deduplication and ranking.
	Priority float64 `koanf:"priority"`

	Timeout    time.Duration `koanf:"timeout"`
	MaxResults int           `koanf:"max_results"`
}

// ProvidersConfig holds the concrete provider adapters.
type ProvidersConfig struct {
	// Serp is a local SERP-scraper service (no API key, highest trust).
	Serp ProviderConfig `koanf:"serp"`

	// Shopping is a hosted shopping-results API.
	Shopping ProviderConfig `koanf:"shopping"`

	// Catalog is a retailer catalog API with direct product URLs.
	Catalog ProviderConfig `koanf:"catalog"`
}

// HealthConfig tunes the session-scoped source health tracker.
type HealthConfig struct {
	// TimeoutThreshold is the number of timeouts within a session after
	// which a provider is cooled down. Auth and rate-limit failures cool
	// down on first occurrence regardless.
	TimeoutThreshold int `koanf:"timeout_threshold"`

	// Cooldown is how long an unhealthy provider is skipped. Sessions are
	// typically shorter than this, so in practice a tripped provider
	// stays skipped for the rest of its session.
	Cooldown time.Duration `koanf:"cooldown"`
}

// FunnelConfig tunes the verification funnel stages.
type FunnelConfig struct {
	// PrefilterConcurrency bounds concurrent metadata fetches in stage 2.
	PrefilterConcurrency int `koanf:"prefilter_concurrency"`

	// PrefilterTimeout is the per-candidate fetch timeout in stage 2.
	PrefilterTimeout time.Duration `koanf:"prefilter_timeout"`

	// PrefilterRPS caps outbound fetch rate across all stage-2 workers.
	PrefilterRPS float64 `koanf:"prefilter_rps"`

	// PriceTolerance is the allowed relative deviation between the
	// claimed price and the structured price (0.10 = ±10%).
	PriceTolerance float64 `koanf:"price_tolerance"`

	// APIVerifyTimeout is the per-candidate timeout for stage 3.
	APIVerifyTimeout time.Duration `koanf:"api_verify_timeout"`

	// BrowserTimeout is the per-candidate timeout for stage 4.
	BrowserTimeout time.Duration `koanf:"browser_timeout"`

	// HardeningTimeout is the per-candidate timeout for stage 5.
	HardeningTimeout time.Duration `koanf:"hardening_timeout"`

	// HardeningMaxRedirects bounds redirect chains in stage 5.
	HardeningMaxRedirects int `koanf:"hardening_max_redirects"`

	// HardeningConcurrency bounds concurrent hardening fetches.
	HardeningConcurrency int `koanf:"hardening_concurrency"`
}

// BrowserConfig sizes the stage-4 browser pool.
type BrowserConfig struct {
	// PoolSize is the number of persistent browser instances.
	PoolSize int `koanf:"pool_size"`

	// ContextsPerBrowser is the number of isolated contexts per browser.
	// Total concurrent verifications = PoolSize * ContextsPerBrowser.
	ContextsPerBrowser int `koanf:"contexts_per_browser"`

	Headless bool `koanf:"headless"`

	// NavigationTimeout bounds a single page load inside a context.
	NavigationTimeout time.Duration `koanf:"navigation_timeout"`
}

// RankingConfig holds the signal weights of the ranking engine.
// Weights are normalized at load time; only their ratios matter.
type RankingConfig struct {
	WeightMatch    float64 `koanf:"weight_match"`
	WeightPriceFit float64 `koanf:"weight_price_fit"`
	WeightTrust    float64 `koanf:"weight_trust"`
	WeightStock    float64 `koanf:"weight_stock"`
}

// SearchConfig holds per-search defaults and the global time budget.
type SearchConfig struct {
	// GlobalTimeout is the soft deadline for one search call. Stages
	// still in flight at the deadline are abandoned; their candidates are
	// dropped as unverified.
	GlobalTimeout time.Duration `koanf:"global_timeout"`

	DefaultTopK int `koanf:"default_top_k"`
	MaxTopK     int `koanf:"max_top_k"`

	DefaultSoftCap float64 `koanf:"default_soft_cap"`
	DefaultHardCap float64 `koanf:"default_hard_cap"`
	Currency       string  `koanf:"currency"`
}

// Default returns a Config with all default values applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8094,
			Timeout:         90 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTL:        time.Hour,
			KeyPrefix:  "stylescout:verified:",
			RedisURL:   "redis://localhost:6379/0",
			BadgerPath: "/data/stylescout/cache",
		},
		Providers: ProvidersConfig{
			Serp: ProviderConfig{
				Enabled:    true,
				BaseURL:    "http://localhost:7001",
				Priority:   1.0,
				Timeout:    6 * time.Second,
				MaxResults: 20,
			},
			Shopping: ProviderConfig{
				Enabled:    false, // requires api_key
				BaseURL:    "https://www.searchapi.io/api/v1/search",
				Priority:   0.95,
				Timeout:    6 * time.Second,
				MaxResults: 20,
			},
			Catalog: ProviderConfig{
				Enabled:    false, // requires api_key
				BaseURL:    "https://api.asosservices.com",
				Priority:   0.85,
				Timeout:    6 * time.Second,
				MaxResults: 20,
			},
		},
		Health: HealthConfig{
			TimeoutThreshold: 2,
			Cooldown:         5 * time.Minute,
		},
		Funnel: FunnelConfig{
			PrefilterConcurrency:  10,
			PrefilterTimeout:      5 * time.Second,
			PrefilterRPS:          20,
			PriceTolerance:        0.10,
			APIVerifyTimeout:      5 * time.Second,
			BrowserTimeout:        15 * time.Second,
			HardeningTimeout:      10 * time.Second,
			HardeningMaxRedirects: 5,
			HardeningConcurrency:  10,
		},
		Browser: BrowserConfig{
			PoolSize:           3,
			ContextsPerBrowser: 5,
			Headless:           true,
			NavigationTimeout:  60 * time.Second,
		},
		Ranking: RankingConfig{
			WeightMatch:    0.40,
			WeightPriceFit: 0.30,
			WeightTrust:    0.20,
			WeightStock:    0.10,
		},
		Search: SearchConfig{
			GlobalTimeout:  45 * time.Second,
			DefaultTopK:    5,
			MaxTopK:        20,
			DefaultSoftCap: 150,
			DefaultHardCap: 300,
			Currency:       "USD",
		},
	}
}

// Validate checks the configuration for inconsistencies. It is called by
// Load; call it directly when constructing a Config by hand in tests.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Cache.Backend {
	case "memory", "redis", "badger":
	default:
		return fmt.Errorf("cache.backend %q unknown (memory, redis, badger)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}

	for name, p := range map[string]ProviderConfig{
		"serp": c.Providers.Serp, "shopping": c.Providers.Shopping, "catalog": c.Providers.Catalog,
	} {
		if !p.Enabled {
			continue
		}
		if p.BaseURL == "" {
			return fmt.Errorf("providers.%s.base_url required when enabled", name)
		}
		if p.Priority < 0 || p.Priority > 1 {
			return fmt.Errorf("providers.%s.priority %v out of [0,1]", name, p.Priority)
		}
		if p.Timeout <= 0 {
			return fmt.Errorf("providers.%s.timeout must be positive", name)
		}
	}

	if c.Health.TimeoutThreshold < 1 {
		return fmt.Errorf("health.timeout_threshold must be >= 1")
	}

	if c.Funnel.PriceTolerance < 0 || c.Funnel.PriceTolerance >= 1 {
		return fmt.Errorf("funnel.price_tolerance %v out of [0,1)", c.Funnel.PriceTolerance)
	}
	if c.Funnel.PrefilterConcurrency < 1 {
		return fmt.Errorf("funnel.prefilter_concurrency must be >= 1")
	}

	if c.Browser.PoolSize < 1 || c.Browser.ContextsPerBrowser < 1 {
		return fmt.Errorf("browser pool dimensions must be >= 1")
	}

	sum := c.Ranking.WeightMatch + c.Ranking.WeightPriceFit + c.Ranking.WeightTrust + c.Ranking.WeightStock
	if sum <= 0 {
		return fmt.Errorf("ranking weights must sum to a positive value")
	}

	if c.Search.DefaultHardCap < c.Search.DefaultSoftCap {
		return fmt.Errorf("search.default_hard_cap %v below default_soft_cap %v",
			c.Search.DefaultHardCap, c.Search.DefaultSoftCap)
	}
	if c.Search.DefaultTopK < 1 || c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k %d out of range", c.Search.DefaultTopK)
	}

	return nil
}

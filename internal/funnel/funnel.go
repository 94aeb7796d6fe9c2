// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package funnel implements the five-stage verification funnel. Each
// deduplicated candidate passes harvest, structural prefilter, retailer
// API verification, browser verification and link hardening in order; a
// stage failure rejects the candidate immediately and no later stage
// runs for it. Cached verifications short-circuit the expensive stages
// entirely.
package funnel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/stylescout/internal/cachestore"
	"github.com/tomtom215/stylescout/internal/logging"
	"github.com/tomtom215/stylescout/internal/metrics"
	"github.com/tomtom215/stylescout/internal/models"
)

// Config bounds the funnel stages. Constructed from the application
// config; kept separate to avoid an import cycle.
type Config struct {
	PrefilterConcurrency  int
	PrefilterTimeout      time.Duration
	PrefilterRPS          float64
	PriceTolerance        float64
	APIVerifyTimeout      time.Duration
	BrowserTimeout        time.Duration
	HardeningTimeout      time.Duration
	HardeningMaxRedirects int
	HardeningConcurrency  int
}

// DefaultConfig returns the production stage bounds.
func DefaultConfig() Config {
	return Config{
		PrefilterConcurrency:  10,
		PrefilterTimeout:      5 * time.Second,
		PrefilterRPS:          20,
		PriceTolerance:        0.10,
		APIVerifyTimeout:      5 * time.Second,
		BrowserTimeout:        15 * time.Second,
		HardeningTimeout:      10 * time.Second,
		HardeningMaxRedirects: 5,
		HardeningConcurrency:  10,
	}
}

// Funnel wires the stage collaborators together.
type Funnel struct {
	cfg       Config
	cache     cachestore.Store
	prefilter *Prefilter
	verifiers *VerifierRegistry
	browser   *BrowserVerifier
	hardener  *Hardener
}

// New builds a funnel. verifiers and browser may be nil, in which case
// their stages pass candidates through as skipped.
func New(cfg Config, cache cachestore.Store, verifiers *VerifierRegistry, browser *BrowserVerifier) *Funnel {
	if verifiers == nil {
		verifiers = NewVerifierRegistry()
	}
	return &Funnel{
		cfg:       cfg,
		cache:     cache,
		prefilter: NewPrefilter(cfg),
		verifiers: verifiers,
		browser:   browser,
		hardener:  NewHardener(cfg),
	}
}

// Outcome is the funnel's result for one batch of candidates.
type Outcome struct {
	// Products holds the verified products by canonical key.
	Products map[string]models.Product

	// Records holds the per-candidate verification trail by key,
	// including rejected and unverified candidates.
	Records map[string]*models.VerificationRecord
}

// Run pushes every candidate through the funnel and returns the
// verified products plus the full verification trail. The batch shares
// ctx; when it expires, candidates still in flight finish as
// unverified and are dropped, never promoted.
func (f *Funnel) Run(ctx context.Context, candidates map[string]models.Candidate, constraints models.Constraints) Outcome {
	out := Outcome{
		Products: make(map[string]models.Product),
		Records:  make(map[string]*models.VerificationRecord, len(candidates)),
	}
	if len(candidates) == 0 {
		return out
	}

	cached := f.lookupCache(ctx, candidates)

	// Drain cache hits before any worker starts: after this pass the
	// main goroutine never touches the outcome maps again, so only the
	// workers write them, and only under mu.
	misses := make(map[string]models.Candidate, len(candidates))
	for key, c := range candidates {
		record := models.NewVerificationRecord(key)
		out.Records[key] = record

		if entry, ok := cached[key]; ok {
			record.CacheHit = true
			record.Finalize(models.VerdictVerified, "")
			out.Products[key] = entry.Product
			continue
		}
		misses[key] = c
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	fresh := make(map[string]models.Product)

	for key, c := range misses {
		wg.Add(1)
		go func(key string, c models.Candidate, record *models.VerificationRecord) {
			defer wg.Done()
			product, ok := f.verify(ctx, c, constraints, record)
			if !ok {
				return
			}
			mu.Lock()
			out.Products[key] = product
			fresh[key] = product
			mu.Unlock()
		}(key, c, out.Records[key])
	}
	wg.Wait()

	f.storeVerified(ctx, fresh)
	return out
}

// verify runs stages 2..5 for a single candidate. Returns the verified
// product when every stage passes.
func (f *Funnel) verify(ctx context.Context, c models.Candidate, constraints models.Constraints, record *models.VerificationRecord) (models.Product, bool) {
	log := logging.Ctx(ctx).With().Str("url", c.URL).Logger()

	// Stage 2: structural prefilter.
	verified, reason, err := f.prefilter.Check(ctx, c)
	if !f.advance(ctx, record, models.StagePrefilter, reason, err, false) {
		return models.Product{}, false
	}

	// Stage 3: retailer API variant verification.
	if verifier, ok := f.verifiers.Lookup(c.Retailer); ok {
		vctx, cancel := context.WithTimeout(ctx, f.cfg.APIVerifyTimeout)
		variant, verr := verifier.VerifyVariant(vctx, c, constraints.Attributes)
		cancel()
		switch {
		case verr != nil:
			// An unreachable retailer API is not the candidate's fault;
			// the browser stage stays authoritative.
			log.Warn().Err(verr).Str("retailer", c.Retailer).Msg("Variant API unavailable, falling through")
			f.skip(record, models.StageAPIVerify)
		case !variant.Purchasable:
			f.reject(record, models.StageAPIVerify, models.ReasonOutOfStock)
			return models.Product{}, false
		case variant.Price > 0 && c.HasPrice() && !models.WithinTolerance(c.Price, variant.Price, f.cfg.PriceTolerance):
			f.reject(record, models.StageAPIVerify, models.ReasonPriceMismatch)
			return models.Product{}, false
		default:
			if variant.Price > 0 {
				verified.Price = variant.Price
				if variant.Currency != "" {
					verified.Currency = variant.Currency
				}
			}
			f.pass(record, models.StageAPIVerify)
		}
	} else {
		f.skip(record, models.StageAPIVerify)
	}

	// Stage 4: browser verification.
	if f.browser != nil {
		price, priceOK, reason, err := f.browser.Check(ctx, verified, constraints.Attributes)
		if !f.advance(ctx, record, models.StageBrowserVerify, reason, err, false) {
			return models.Product{}, false
		}
		if priceOK {
			verified.Price = price
		}
	} else {
		f.skip(record, models.StageBrowserVerify)
	}

	// Stage 5: link hardening.
	finalURL, reason, err := f.hardener.Check(ctx, verified.URL)
	if !f.advance(ctx, record, models.StageHardening, reason, err, false) {
		return models.Product{}, false
	}

	record.Finalize(models.VerdictVerified, "")
	return models.Product{
		Title:      verified.Title,
		Price:      verified.Price,
		Currency:   verified.Currency,
		URL:        finalURL,
		ImageURL:   verified.ImageURL,
		Retailer:   verified.Retailer,
		Brand:      verified.Brand,
		Provider:   verified.Provider,
		InStock:    true,
		VerifiedAt: time.Now().UTC(),
	}, true
}

// advance applies a stage outcome to the record. Returns false when the
// candidate is finished (rejected or out of time).
func (f *Funnel) advance(ctx context.Context, record *models.VerificationRecord, stage models.Stage, reason models.RejectReason, err error, skipped bool) bool {
	if err != nil {
		if ctx.Err() != nil {
			// The search deadline expired, not the candidate's fault:
			// unverified, dropped without a verdict against it.
			record.Advance(stage, false, false)
			record.Finalize(models.VerdictUnverified, models.ReasonDeadlineExceed)
			metrics.FunnelStageResults.WithLabelValues(stage.String(), "abandoned").Inc()
			return false
		}
		reason = classifyError(err)
	}
	if reason != "" {
		f.reject(record, stage, reason)
		return false
	}
	if skipped {
		f.skip(record, stage)
		return true
	}
	f.pass(record, stage)
	return true
}

func (f *Funnel) pass(record *models.VerificationRecord, stage models.Stage) {
	record.Advance(stage, true, false)
	metrics.FunnelStageResults.WithLabelValues(stage.String(), "pass").Inc()
}

func (f *Funnel) skip(record *models.VerificationRecord, stage models.Stage) {
	record.Advance(stage, true, true)
	metrics.FunnelStageResults.WithLabelValues(stage.String(), "skip").Inc()
}

func (f *Funnel) reject(record *models.VerificationRecord, stage models.Stage, reason models.RejectReason) {
	record.Advance(stage, false, false)
	record.Finalize(models.VerdictRejected, reason)
	metrics.FunnelStageResults.WithLabelValues(stage.String(), "fail").Inc()
	metrics.FunnelRejections.WithLabelValues(string(reason)).Inc()
}

// classifyError maps a stage transport error to a reject reason.
func classifyError(err error) models.RejectReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ReasonTimeout
	}
	return models.ReasonHTTPError
}

// lookupCache returns the live cached entries for the batch. A cache
// backend outage degrades to verifying everything fresh.
func (f *Funnel) lookupCache(ctx context.Context, candidates map[string]models.Candidate) map[string]cachestore.Entry {
	if f.cache == nil {
		return nil
	}
	keys := make([]string, 0, len(candidates))
	for key := range candidates {
		keys = append(keys, key)
	}
	entries, err := f.cache.GetMany(ctx, keys)
	if err != nil {
		metrics.CacheDegraded.Inc()
		logging.Ctx(ctx).Warn().Err(err).Msg("Cache unavailable, verifying fresh")
		return nil
	}
	return entries
}

// storeVerified persists freshly verified products. Best effort: a
// write failure costs a future cache hit, not this search.
func (f *Funnel) storeVerified(ctx context.Context, fresh map[string]models.Product) {
	if f.cache == nil || len(fresh) == 0 {
		return
	}
	// The search deadline may already be gone; give the write its own
	// short budget.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := f.cache.PutMany(sctx, fresh); err != nil {
		metrics.CacheDegraded.Inc()
		logging.Ctx(ctx).Warn().Err(err).Int("count", len(fresh)).Msg("Cache write failed")
	}
}

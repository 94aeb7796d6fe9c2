// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package pipeline is the discovery controller: it owns the end-to-end
// search flow from provider fan-out through deduplication, constraint
// filtering, the verification funnel and ranking. Searches run inside a
// Session, which scopes source health state to one bounded sequence of
// related searches; health state never leaks across sessions.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/tomtom215/stylescout/internal/dedupe"
	"github.com/tomtom215/stylescout/internal/fanout"
	"github.com/tomtom215/stylescout/internal/funnel"
	"github.com/tomtom215/stylescout/internal/health"
	"github.com/tomtom215/stylescout/internal/logging"
	"github.com/tomtom215/stylescout/internal/metrics"
	"github.com/tomtom215/stylescout/internal/models"
	"github.com/tomtom215/stylescout/internal/rank"
)

// Options configure the controller.
type Options struct {
	GlobalTimeout time.Duration
	DefaultTopK   int
	MaxTopK       int
	DefaultBudget models.Budget
	Health        health.Config
	Priorities    dedupe.Priorities
}

// Controller wires the pipeline stages together.
type Controller struct {
	opts         Options
	orchestrator *fanout.Orchestrator
	funnel       *funnel.Funnel
	engine       *rank.Engine
}

// New builds a controller over the given collaborators.
func New(opts Options, orchestrator *fanout.Orchestrator, f *funnel.Funnel, engine *rank.Engine) *Controller {
	return &Controller{
		opts:         opts,
		orchestrator: orchestrator,
		funnel:       f,
		engine:       engine,
	}
}

// Session is a bounded sequence of related searches — typically all
// items within one outfit request — sharing source-health state. A
// provider that hard-fails during one search is skipped for the rest
// of the session, and the state is discarded with the session, so
// unrelated sessions never interfere.
type Session struct {
	c       *Controller
	tracker *health.Tracker
}

// NewSession mints a session with fresh source-health state.
func (c *Controller) NewSession() *Session {
	return &Session{
		c:       c,
		tracker: health.NewTracker(c.opts.Health),
	}
}

// Request is one search call.
type Request struct {
	Descriptor  string
	Constraints models.Constraints
	TopK        int
}

// Stats summarizes what happened to the candidate set along the way.
type Stats struct {
	Harvested        int           `json:"harvested"`
	Deduplicated     int           `json:"deduplicated"`
	Filtered         int           `json:"filtered"`
	Verified         int           `json:"verified"`
	Rejected         int           `json:"rejected"`
	Unverified       int           `json:"unverified"`
	CacheHits        int           `json:"cache_hits"`
	ProvidersFailed  int           `json:"providers_failed"`
	ProvidersSkipped int           `json:"providers_skipped"`
	Duration         time.Duration `json:"duration"`
}

// Response is the ranked, verified answer. An empty product list is a
// valid outcome: nothing purchasable matched.
type Response struct {
	SearchID string                                `json:"search_id"`
	Products []models.RankedProduct                `json:"products"`
	Records  map[string]*models.VerificationRecord `json:"-"`
	Stats    Stats                                 `json:"stats"`
}

// Search runs a session of exactly one search. Callers with several
// related descriptors should create one Session and search through it
// so that provider cooldowns carry across the sequence.
func (c *Controller) Search(ctx context.Context, req Request) (Response, error) {
	return c.NewSession().Search(ctx, req)
}

// Search runs the full pipeline for one descriptor. It never fails on
// partial provider trouble; it only errors when the request itself is
// unusable.
func (s *Session) Search(ctx context.Context, req Request) (Response, error) {
	c := s.c
	start := time.Now()

	searchID := logging.GenerateSearchID()
	ctx = logging.ContextWithSearchID(ctx, searchID)
	ctx, cancel := context.WithTimeout(ctx, c.opts.GlobalTimeout)
	defer cancel()

	req = c.applyDefaults(req)
	log := logging.Ctx(ctx)
	log.Info().
		Str("descriptor", req.Descriptor).
		Float64("soft_cap", req.Constraints.Budget.SoftCap).
		Float64("hard_cap", req.Constraints.Budget.HardCap).
		Int("top_k", req.TopK).
		Msg("Search started")

	harvest := c.orchestrator.Search(ctx, req.Descriptor, req.Constraints, s.tracker)
	merged := dedupe.Merge(harvest.Candidates, c.opts.Priorities)
	kept, records := c.applyConstraints(merged, req.Constraints)

	candidates := make(map[string]models.Candidate, len(kept))
	for _, cand := range kept {
		candidates[dedupe.Key(cand)] = cand
	}

	out := c.funnel.Run(ctx, candidates, req.Constraints)
	for key, record := range out.Records {
		records[key] = record
	}

	ranked := c.engine.Rank(req.Descriptor, out.Products, out.Records, req.Constraints.Budget, req.TopK)

	resp := Response{
		SearchID: searchID,
		Products: ranked,
		Records:  records,
		Stats:    buildStats(harvest, merged, kept, records, time.Since(start)),
	}

	metrics.SearchDuration.Observe(resp.Stats.Duration.Seconds())
	metrics.SearchResults.Observe(float64(len(ranked)))
	if len(ranked) == 0 {
		metrics.SearchEmpty.Inc()
	}

	log.Info().
		Int("harvested", resp.Stats.Harvested).
		Int("verified", resp.Stats.Verified).
		Int("returned", len(ranked)).
		Dur("duration", resp.Stats.Duration).
		Msg("Search finished")
	return resp, nil
}

func (c *Controller) applyDefaults(req Request) Request {
	if req.TopK <= 0 {
		req.TopK = c.opts.DefaultTopK
	}
	if c.opts.MaxTopK > 0 && req.TopK > c.opts.MaxTopK {
		req.TopK = c.opts.MaxTopK
	}
	if req.Constraints.Budget.SoftCap <= 0 {
		req.Constraints.Budget = c.opts.DefaultBudget
	}
	if req.Constraints.Budget.HardCap < req.Constraints.Budget.SoftCap {
		req.Constraints.Budget.HardCap = req.Constraints.Budget.SoftCap
	}
	return req
}

// applyConstraints drops candidates that can never satisfy the request:
// wrong retailer or a claimed price already past the hard cap. Dropped
// candidates get a finalized record so the trail stays complete.
func (c *Controller) applyConstraints(candidates []models.Candidate, constraints models.Constraints) ([]models.Candidate, map[string]*models.VerificationRecord) {
	records := make(map[string]*models.VerificationRecord)
	kept := candidates[:0:0]

	for _, cand := range candidates {
		if c.violatesConstraints(cand, constraints) {
			record := models.NewVerificationRecord(dedupe.Key(cand))
			record.Finalize(models.VerdictRejected, models.ReasonFilteredOut)
			records[record.Key] = record
			metrics.FunnelRejections.WithLabelValues(string(models.ReasonFilteredOut)).Inc()
			continue
		}
		kept = append(kept, cand)
	}
	return kept, records
}

func (c *Controller) violatesConstraints(cand models.Candidate, constraints models.Constraints) bool {
	if cand.HasPrice() && constraints.Budget.HardCap > 0 && cand.Price > constraints.Budget.HardCap {
		return true
	}
	if containsFold(constraints.RetailerDeny, cand.Retailer) {
		return true
	}
	if len(constraints.RetailerAllow) > 0 && !containsFold(constraints.RetailerAllow, cand.Retailer) {
		return true
	}
	// Brand is only enforceable when the source reported one; verification
	// stages handle brandless candidates downstream.
	if constraints.Attributes.Brand != "" && cand.Brand != "" && !strings.EqualFold(cand.Brand, constraints.Attributes.Brand) {
		return true
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func buildStats(harvest fanout.Result, merged, kept []models.Candidate, records map[string]*models.VerificationRecord, elapsed time.Duration) Stats {
	stats := Stats{
		Harvested:        len(harvest.Candidates),
		Deduplicated:     len(merged),
		Filtered:         len(merged) - len(kept),
		ProvidersFailed:  harvest.Failed,
		ProvidersSkipped: harvest.Skipped,
		Duration:         elapsed,
	}
	for _, record := range records {
		switch record.Verdict {
		case models.VerdictVerified:
			stats.Verified++
			if record.CacheHit {
				stats.CacheHits++
			}
		case models.VerdictRejected:
			stats.Rejected++
		case models.VerdictUnverified:
			stats.Unverified++
		}
	}
	return stats
}

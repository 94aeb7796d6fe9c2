// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package fanout issues one search to every healthy provider concurrently
// and collects whatever arrives before the deadline. A failing provider
// contributes zero candidates and a health-tracker update; it never fails
// the overall call.
package fanout

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/stylescout/internal/health"
	"github.com/tomtom215/stylescout/internal/logging"
	"github.com/tomtom215/stylescout/internal/metrics"
	"github.com/tomtom215/stylescout/internal/models"
	"github.com/tomtom215/stylescout/internal/provider"
)

// Orchestrator fans a search out over a fixed set of providers.
type Orchestrator struct {
	providers  []provider.Provider
	timeout    time.Duration // per-provider budget
	maxResults int
}

// Result is the outcome of one fan-out.
type Result struct {
	Candidates []models.Candidate

	// Failed counts providers that errored or timed out. Observability
	// only; control flow never branches on it.
	Failed int

	// Skipped counts providers the health tracker ruled out up front.
	Skipped int
}

// New creates an orchestrator. The per-provider timeout bounds each call
// independently; the caller's context carries the global deadline.
func New(providers []provider.Provider, perProviderTimeout time.Duration, maxResults int) *Orchestrator {
	if perProviderTimeout <= 0 {
		perProviderTimeout = 6 * time.Second
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	return &Orchestrator{
		providers:  providers,
		timeout:    perProviderTimeout,
		maxResults: maxResults,
	}
}

// Providers returns the configured provider set.
func (o *Orchestrator) Providers() []provider.Provider {
	return o.providers
}

// Search invokes every eligible provider concurrently and returns the
// concatenation of their candidates. Providers that error update the
// tracker; providers still in flight when ctx expires are abandoned and
// contribute nothing.
func (o *Orchestrator) Search(ctx context.Context, descriptor string, constraints models.Constraints, tracker *health.Tracker) Result {
	var (
		mu  sync.Mutex
		res Result
	)

	g, gctx := errgroup.WithContext(ctx)

	for _, p := range o.providers {
		if !tracker.Eligible(p.Name()) {
			res.Skipped++
			metrics.ProviderRequests.WithLabelValues(p.Name(), "skipped").Inc()
			logging.Ctx(ctx).Debug().Str("provider", p.Name()).Msg("provider skipped: cooling down")
			continue
		}

		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, o.timeout)
			defer cancel()

			start := time.Now()
			candidates, err := p.Search(pctx, descriptor, constraints, o.maxResults)
			metrics.ProviderLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

			if err != nil {
				tracker.RecordFailure(p.Name(), err)
				outcome := "error"
				if pe, ok := models.AsProviderError(err); ok {
					outcome = string(pe.Kind)
				}
				metrics.ProviderRequests.WithLabelValues(p.Name(), outcome).Inc()
				logging.Ctx(ctx).Warn().
					Err(err).
					Str("provider", p.Name()).
					Msg("provider failed")

				mu.Lock()
				res.Failed++
				mu.Unlock()
				return nil // one provider's failure never fails the fan-out
			}

			tracker.RecordSuccess(p.Name())
			metrics.ProviderRequests.WithLabelValues(p.Name(), "success").Inc()
			metrics.ProviderCandidates.WithLabelValues(p.Name()).Add(float64(len(candidates)))

			mu.Lock()
			res.Candidates = append(res.Candidates, candidates...)
			mu.Unlock()
			return nil
		})
	}

	// Wait returns when all providers settled or the global deadline
	// cancelled gctx; late providers surface as timeouts above.
	_ = g.Wait()

	logging.Ctx(ctx).Info().
		Int("candidates", len(res.Candidates)).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("fan-out complete")

	return res
}

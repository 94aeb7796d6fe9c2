// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package health tracks per-provider reliability within one search
// session. A session covers a bounded sequence of searches (for example
// every item of one outfit request); trackers are never shared across
// sessions, so unrelated requests cannot interfere with each other.
//
// Skipping an unhealthy provider is a fail-fast optimization, not a
// correctness requirement: the funnel operates correctly with fewer
// candidates.
package health

import (
	"sync"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/stylescout/internal/logging"
	"github.com/tomtom215/stylescout/internal/metrics"
	"github.com/tomtom215/stylescout/internal/models"
)

// Config tunes a tracker. Kept separate from the config package to avoid
// an import cycle from config-consuming packages.
type Config struct {
	// TimeoutThreshold is the number of timeouts after which a provider
	// is cooled down. Hard failures (auth, rate limit, malformed schema)
	// cool down on first occurrence.
	TimeoutThreshold int

	// Cooldown is how long a tripped provider stays skipped. Sessions
	// are usually shorter than this, so a tripped provider is effectively
	// out for the rest of its session.
	Cooldown time.Duration
}

// DefaultConfig matches the documented session behavior: two timeouts or
// one hard failure trips a provider for five minutes.
func DefaultConfig() Config {
	return Config{TimeoutThreshold: 2, Cooldown: 5 * time.Minute}
}

// Tracker is a session-scoped registry of provider health. Safe for
// concurrent use by the fan-out orchestrator's goroutines.
type Tracker struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	breaker *gobreaker.CircuitBreaker[struct{}]

	// hard is set when the provider returned an auth, rate-limit, or
	// malformed-schema error; the breaker trips on the next evaluation.
	hard atomic.Bool

	// timeouts counts timeout failures within the session.
	timeouts atomic.Int32
}

// NewTracker creates a tracker for one session.
func NewTracker(cfg Config) *Tracker {
	if cfg.TimeoutThreshold < 1 {
		cfg.TimeoutThreshold = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Tracker{
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
}

func (t *Tracker) entryFor(provider string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[provider]; ok {
		return e
	}

	e := &entry{}
	e.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Interval:    0, // never reset counts within a session
		Timeout:     t.cfg.Cooldown,

		// Trip immediately on a hard failure, or once the session has
		// seen TimeoutThreshold timeouts from this provider.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if e.hard.Load() {
				return true
			}
			return int(e.timeouts.Load()) >= t.cfg.TimeoutThreshold
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().
				Str("provider", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("source health transition")
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.BreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
	t.entries[provider] = e
	return e
}

// Eligible reports whether the provider should be called. An open breaker
// means the provider is cooling down and must receive zero calls.
func (t *Tracker) Eligible(provider string) bool {
	return t.entryFor(provider).breaker.State() != gobreaker.StateOpen
}

// RecordSuccess notes a successful provider call.
func (t *Tracker) RecordSuccess(provider string) {
	e := t.entryFor(provider)
	_, _ = e.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, nil
	})
}

// RecordFailure classifies err and feeds it to the provider's breaker.
// Auth, rate-limit, and malformed-schema errors trip the breaker at once;
// timeouts trip it after the configured threshold.
func (t *Tracker) RecordFailure(provider string, err error) {
	e := t.entryFor(provider)

	if pe, ok := models.AsProviderError(err); ok {
		switch {
		case pe.HardFailure(), pe.Kind == models.ErrKindMalformed:
			e.hard.Store(true)
		case pe.Kind == models.ErrKindTimeout:
			e.timeouts.Add(1)
		}
	}

	_, _ = e.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, err
	})
}

// Snapshot returns the current state per tracked provider, for logging.
func (t *Tracker) Snapshot() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]string, len(t.entries))
	for name, e := range t.entries {
		out[name] = stateToString(e.breaker.State())
	}
	return out
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

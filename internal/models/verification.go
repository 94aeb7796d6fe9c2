// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package models

import "time"

// Stage identifies a verification funnel stage. Stages are strictly
// ordered: a record only ever advances to a higher stage.
type Stage int

const (
	// StageHarvest is the funnel entry point: candidates as received from
	// the provider adapters, deduplicated.
	StageHarvest Stage = iota

	// StagePrefilter is the cheap structural pre-filter (HTTP metadata
	// fetch, no rendering).
	StagePrefilter

	// StageAPIVerify is structured retailer-API variant verification.
	StageAPIVerify

	// StageBrowserVerify is full browser-rendered verification.
	StageBrowserVerify

	// StageHardening is the final link integrity check.
	StageHardening
)

// String returns the stage name used in logs and metrics labels.
func (s Stage) String() string {
	switch s {
	case StageHarvest:
		return "harvest"
	case StagePrefilter:
		return "prefilter"
	case StageAPIVerify:
		return "api_verify"
	case StageBrowserVerify:
		return "browser_verify"
	case StageHardening:
		return "hardening"
	default:
		return "unknown"
	}
}

// Verdict is the final outcome of a candidate's trip through the funnel.
type Verdict string

const (
	// VerdictVerified means every applicable stage passed.
	VerdictVerified Verdict = "verified"

	// VerdictRejected means some stage failed a concrete check.
	VerdictRejected Verdict = "rejected"

	// VerdictUnverified means the funnel ran out of time or budget before
	// a definitive answer. Unverified candidates are dropped from output,
	// never promoted.
	VerdictUnverified Verdict = "unverified"
)

// RejectReason classifies why a candidate was rejected.
type RejectReason string

const (
	ReasonOutOfStock     RejectReason = "out_of_stock"
	ReasonNoAffordance   RejectReason = "no_purchase_affordance"
	ReasonPriceMismatch  RejectReason = "price_mismatch"
	ReasonHTTPError      RejectReason = "http_error"
	ReasonTimeout        RejectReason = "timeout"
	ReasonBlocked        RejectReason = "blocked"
	ReasonFilteredOut    RejectReason = "filtered_out"
	ReasonDeadlineExceed RejectReason = "deadline_exceeded"
)

// StageResult records the outcome of one funnel stage for one candidate.
// Skipped is set when a stage has no applicable path for the candidate
// (e.g. no retailer API in stage 3) and it passed through unchanged.
type StageResult struct {
	Stage   Stage `json:"stage"`
	Passed  bool  `json:"passed"`
	Skipped bool  `json:"skipped,omitempty"`
}

// VerificationRecord accumulates a candidate's progress through the
// funnel. It is created when the candidate enters and finalized exactly
// once when the candidate exits. The stage index is monotonic: Advance
// panics if called with a stage at or below the current one, since that
// indicates a funnel wiring bug rather than a runtime condition.
type VerificationRecord struct {
	Key      string        `json:"key"` // canonical key
	Stage    Stage         `json:"stage"`
	Results  []StageResult `json:"results"`
	Verdict  Verdict       `json:"verdict"`
	Reason   RejectReason  `json:"reason,omitempty"`
	CacheHit bool          `json:"cache_hit,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewVerificationRecord creates a record positioned at the harvest stage.
func NewVerificationRecord(key string) *VerificationRecord {
	return &VerificationRecord{
		Key:       key,
		Stage:     StageHarvest,
		Results:   []StageResult{{Stage: StageHarvest, Passed: true}},
		Verdict:   VerdictUnverified,
		StartedAt: time.Now().UTC(),
	}
}

// Advance records the outcome of the next stage. The stage must be
// strictly greater than the current stage.
func (r *VerificationRecord) Advance(stage Stage, passed, skipped bool) {
	if stage <= r.Stage {
		panic("verification record: stage moved backwards")
	}
	r.Stage = stage
	r.Results = append(r.Results, StageResult{Stage: stage, Passed: passed, Skipped: skipped})
}

// Finalize sets the verdict once. Later calls are ignored so that a
// deadline sweep cannot overwrite a concrete stage outcome.
func (r *VerificationRecord) Finalize(verdict Verdict, reason RejectReason) {
	if !r.FinishedAt.IsZero() {
		return
	}
	r.Verdict = verdict
	r.Reason = reason
	r.FinishedAt = time.Now().UTC()
}

// Finalized reports whether the record has already been finalized.
func (r *VerificationRecord) Finalized() bool {
	return !r.FinishedAt.IsZero()
}

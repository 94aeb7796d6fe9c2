// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package rank orders verified products by a weighted blend of match
// quality, budget fit, source trust and stock confidence. Ranking only
// ever sees verified products; it never resurrects rejected ones.
package rank

import (
	"sort"
	"strings"

	"github.com/tomtom215/stylescout/internal/models"
)

// Weights are the relative importance of each ranking signal. They are
// expected to sum to 1 so scores stay in [0,1].
type Weights struct {
	Match           float64
	PriceFit        float64
	Trust           float64
	StockConfidence float64
}

// DefaultWeights returns the production blend.
func DefaultWeights() Weights {
	return Weights{Match: 0.40, PriceFit: 0.30, Trust: 0.20, StockConfidence: 0.10}
}

// Engine scores and orders verified products.
type Engine struct {
	weights Weights

	// priorities maps provider name to its trust score in [0,1].
	priorities map[string]float64
}

// New creates an engine. Unknown providers score a neutral 0.5 trust.
func New(weights Weights, priorities map[string]float64) *Engine {
	return &Engine{weights: weights, priorities: priorities}
}

// Rank scores every product and returns the top k in descending score
// order. Records supply the verification depth for stock confidence and
// may be nil. k <= 0 means no limit.
func (e *Engine) Rank(descriptor string, products map[string]models.Product, records map[string]*models.VerificationRecord, budget models.Budget, k int) []models.RankedProduct {
	ranked := make([]models.RankedProduct, 0, len(products))
	descriptorTokens := tokenize(descriptor)

	for key, p := range products {
		breakdown := models.ScoreBreakdown{
			Match:           matchScore(descriptorTokens, p.Title),
			PriceFit:        PriceFit(p.Price, budget),
			Trust:           e.trust(p.Provider),
			StockConfidence: stockConfidence(records[key]),
		}
		ranked = append(ranked, models.RankedProduct{
			Product: p,
			Score: e.weights.Match*breakdown.Match +
				e.weights.PriceFit*breakdown.PriceFit +
				e.weights.Trust*breakdown.Trust +
				e.weights.StockConfidence*breakdown.StockConfidence,
			Breakdown: breakdown,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Product.Price != b.Product.Price {
			return a.Product.Price < b.Product.Price
		}
		return a.Breakdown.Trust > b.Breakdown.Trust
	})

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// PriceFit scores how well a price sits in the budget: 1.0 at or below
// the soft cap, falling linearly to 0.0 at the hard cap, 0 beyond it.
// Higher prices never score higher than lower ones.
func PriceFit(price float64, budget models.Budget) float64 {
	if budget.SoftCap <= 0 || price <= 0 {
		return 0.5 // no budget signal to score against
	}
	switch {
	case price <= budget.SoftCap:
		return 1.0
	case price >= budget.HardCap:
		return 0.0
	default:
		return (budget.HardCap - price) / (budget.HardCap - budget.SoftCap)
	}
}

func (e *Engine) trust(provider string) float64 {
	if v, ok := e.priorities[provider]; ok {
		return v
	}
	return 0.5
}

// stockConfidence reflects how deep the verification went: a browser
// check is worth more than a structured API answer, which is worth more
// than metadata alone.
func stockConfidence(record *models.VerificationRecord) float64 {
	if record == nil {
		return 0.6
	}
	if record.CacheHit {
		return 0.9 // verified recently, not re-checked this search
	}
	confidence := 0.6
	for _, res := range record.Results {
		if res.Skipped || !res.Passed {
			continue
		}
		switch res.Stage {
		case models.StageAPIVerify:
			if confidence < 0.8 {
				confidence = 0.8
			}
		case models.StageBrowserVerify:
			confidence = 1.0
		}
	}
	return confidence
}

// matchScore is the fraction of descriptor tokens present in the title.
func matchScore(descriptorTokens []string, title string) float64 {
	if len(descriptorTokens) == 0 {
		return 0.5
	}
	titleTokens := make(map[string]bool)
	for _, tok := range tokenize(title) {
		titleTokens[tok] = true
	}
	hits := 0
	for _, tok := range descriptorTokens {
		if titleTokens[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(descriptorTokens))
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

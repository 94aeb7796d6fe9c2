// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package provider defines the search provider contract and the concrete
// adapters. Each adapter normalizes one external backend's responses into
// models.Candidate and converts its failures into typed ProviderErrors;
// nothing provider-specific crosses this boundary.
package provider

import (
	"context"
	"strings"

	"github.com/tomtom215/stylescout/internal/models"
)

// Provider is the single capability every search backend exposes.
type Provider interface {
	// Name returns the stable provider identifier used in candidates,
	// health tracking, and metrics labels.
	Name() string

	// Priority returns the static trust weight in [0,1] reflecting the
	// provider's historical reliability.
	Priority() float64

	// Search returns up to maxResults candidates for the descriptor.
	// Failures are returned as *models.ProviderError; the adapter never
	// lets transport or decoding errors escape unclassified.
	Search(ctx context.Context, descriptor string, constraints models.Constraints, maxResults int) ([]models.Candidate, error)
}

// searchTerms folds the requested gender and brand into the query text
// so backends narrow results server-side. Tokens the descriptor already
// contains are not repeated.
func searchTerms(descriptor string, attrs models.Attributes) string {
	lower := strings.ToLower(descriptor)
	var parts []string
	if attrs.Gender != "" && !strings.Contains(lower, strings.ToLower(attrs.Gender)) {
		parts = append(parts, attrs.Gender)
	}
	if attrs.Brand != "" && !strings.Contains(lower, strings.ToLower(attrs.Brand)) {
		parts = append(parts, attrs.Brand)
	}
	parts = append(parts, descriptor)
	return strings.Join(parts, " ")
}

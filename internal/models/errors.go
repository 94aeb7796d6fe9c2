// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure. The source health tracker uses
// the kind to decide whether a provider should be cooled down.
type ErrorKind string

const (
	// ErrKindAuth covers 401/403 responses: credentials are wrong for the
	// whole session, so the provider is cooled down immediately.
	ErrKindAuth ErrorKind = "auth"

	// ErrKindRateLimited covers 429 responses; also an immediate cooldown.
	ErrKindRateLimited ErrorKind = "rate_limited"

	// ErrKindTimeout covers deadline-exceeded calls. A single timeout is
	// tolerated; repeated timeouts cool the provider down.
	ErrKindTimeout ErrorKind = "timeout"

	// ErrKindMalformed covers responses that do not match the provider's
	// documented schema.
	ErrKindMalformed ErrorKind = "malformed"
)

// ProviderError is the only error type an adapter surfaces to the
// orchestrator. It isolates one provider's failure; it never aborts the
// overall search.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap supports errors.Is/errors.As chains.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err as a typed provider failure.
func NewProviderError(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// AsProviderError extracts a ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// HardFailure reports whether the error kind should cool the provider
// down on first occurrence rather than after repeats.
func (e *ProviderError) HardFailure() bool {
	return e.Kind == ErrKindAuth || e.Kind == ErrKindRateLimited
}

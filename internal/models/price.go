// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package models

import (
	"strconv"
	"strings"
)

// ParsePrice extracts a numeric amount from a displayed price string
// such as "$149.99", "EUR 1.299,00" or "149". It returns ok=false when
// no digits are present; a zero amount with ok=true is valid (free
// items exist, unknown prices do not carry digits).
func ParsePrice(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case b.Len() > 0:
			// Stop at the first non-numeric rune after digits started,
			// so "149.99 - 199.99" ranges yield the low end.
			goto parse
		}
	}

parse:
	s := b.String()
	if s == "" {
		return 0, false
	}

	// Disambiguate thousands vs decimal separators. A comma followed by
	// exactly two digits at the end is a decimal comma ("1.299,00");
	// otherwise commas group thousands ("1,299.00").
	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')
	if lastComma > lastDot && len(s)-lastComma == 3 {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	s = strings.TrimRight(s, ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// WithinTolerance reports whether observed is within fraction tol of
// claimed (e.g. tol=0.10 allows a 10% drift either way). An unknown
// claimed price never mismatches.
func WithinTolerance(claimed, observed, tol float64) bool {
	if claimed <= 0 {
		return true
	}
	diff := observed - claimed
	if diff < 0 {
		diff = -diff
	}
	return diff <= claimed*tol
}

// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with user-friendly error messages. It integrates
// with the API's error envelope for consistent validation responses.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Error translation to human-readable messages
//   - APIError conversion matching the application's error format
//   - Built-in validator support (oneof, gtefield, len, url, etc.)
//
// # Quick Start
//
//	type SearchRequest struct {
//	    Descriptor string `validate:"required,min=2,max=500"`
//	    TopK       int    `validate:"min=0,max=100"`
//	    Gender     string `validate:"omitempty,oneof=men women unisex"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    var req SearchRequest
//	    if err := json.Decode(r.Body, &req); err != nil {
//	        // handle decode error
//	    }
//
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//
//	    // proceed with valid request
//	}
//
// # Common Validation Tags
//
// String validations:
//   - required: Field must not be empty
//   - min=n: Minimum length n characters
//   - max=n: Maximum length n characters
//   - len=n: Exactly n characters (ISO currency codes)
//   - url: Valid URL format
//
// Numeric validations:
//   - gt=n, gte=n, lt=n, lte=n: Comparison bounds
//   - min=n, max=n: Value range
//   - gtefield=Other: Greater than or equal to another field
//     (budget hard cap versus soft cap)
//
// Enum validations:
//   - oneof=a b c: Must be one of the specified values
//
// # API Error Integration
//
// The ToAPIError method produces errors matching the application format:
//
//	// Single field error
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Descriptor is required",
//	    "details": {"field": "Descriptor", "tag": "required", "value": ""}
//	}
//
//	// Multiple field errors
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Descriptor: must be at least 2 characters; TopK: must be at most 100",
//	    "details": {
//	        "fields": [
//	            {"field": "Descriptor", "tag": "min", "message": "..."},
//	            {"field": "TopK", "tag": "max", "message": "..."}
//	        ]
//	    }
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use:
//
//	validate := validation.GetValidator()  // Thread-safe
//	err := validation.ValidateStruct(&req) // Thread-safe
//
// # See Also
//
//   - internal/api: Request handlers using validation
//   - github.com/go-playground/validator/v10: Underlying library
package validation

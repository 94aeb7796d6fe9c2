// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stylescout/internal/models"
)

// maxRequestBytes caps search request bodies.
const maxRequestBytes = 64 << 10

// SearchRequest is the body of POST /api/v1/products/search.
type SearchRequest struct {
	// Descriptor is the natural-language item description to search for.
	Descriptor string `json:"descriptor" validate:"required_without=Descriptors,omitempty,min=2,max=500"`

	// Descriptors searches several related items in one session, e.g.
	// every piece of a single outfit. All descriptors share source
	// health state, so a provider that hard-fails early is skipped for
	// the rest of the batch. Takes precedence over Descriptor when both
	// are set.
	Descriptors []string `json:"descriptors" validate:"omitempty,max=10,dive,min=2,max=500"`

	// TopK is how many ranked products to return. Zero means the
	// server default.
	TopK int `json:"top_k" validate:"min=0,max=100"`

	Budget *struct {
		SoftCap  float64 `json:"soft_cap" validate:"gt=0"`
		HardCap  float64 `json:"hard_cap" validate:"gtefield=SoftCap"`
		Currency string  `json:"currency" validate:"omitempty,len=3"`
	} `json:"budget" validate:"omitempty"`

	RetailerAllow []string `json:"retailer_allow" validate:"max=50"`
	RetailerDeny  []string `json:"retailer_deny" validate:"max=50"`

	Attributes struct {
		Size   string `json:"size" validate:"max=32"`
		Color  string `json:"color" validate:"max=64"`
		Gender string `json:"gender" validate:"omitempty,oneof=men women unisex"`
		Brand  string `json:"brand" validate:"max=128"`
	} `json:"attributes"`
}

// decodeSearchRequest parses and bounds the request body.
func decodeSearchRequest(r *http.Request) (SearchRequest, error) {
	var req SearchRequest

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return req, fmt.Errorf("read request body: %w", err)
	}
	if len(body) == 0 {
		return req, fmt.Errorf("empty request body")
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("invalid JSON: %w", err)
	}
	return req, nil
}

// Constraints converts the request to the pipeline's constraint model.
func (req SearchRequest) Constraints() models.Constraints {
	c := models.Constraints{
		RetailerAllow: req.RetailerAllow,
		RetailerDeny:  req.RetailerDeny,
		Attributes: models.Attributes{
			Size:   req.Attributes.Size,
			Color:  req.Attributes.Color,
			Gender: req.Attributes.Gender,
			Brand:  req.Attributes.Brand,
		},
	}
	if req.Budget != nil {
		c.Budget = models.Budget{
			SoftCap:  req.Budget.SoftCap,
			HardCap:  req.Budget.HardCap,
			Currency: req.Budget.Currency,
		}
	}
	return c
}

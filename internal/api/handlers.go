// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package api

import (
	"net/http"

	"github.com/tomtom215/stylescout/internal/logging"
	"github.com/tomtom215/stylescout/internal/pipeline"
	"github.com/tomtom215/stylescout/internal/validation"
)

// Handler serves the product discovery endpoints.
type Handler struct {
	controller *pipeline.Controller
}

// NewHandler creates a handler over the pipeline controller.
func NewHandler(controller *pipeline.Controller) *Handler {
	return &Handler{controller: controller}
}

// ProductSearch handles POST /api/v1/products/search.
func (h *Handler) ProductSearch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req, err := decodeSearchRequest(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	// All searches of one request share a session, so source health
	// carries across the descriptors of an outfit.
	session := h.controller.NewSession()

	if len(req.Descriptors) > 0 {
		batch := BatchSearchResponse{Searches: make([]pipeline.Response, 0, len(req.Descriptors))}
		for _, descriptor := range req.Descriptors {
			resp, err := session.Search(r.Context(), pipeline.Request{
				Descriptor:  descriptor,
				Constraints: req.Constraints(),
				TopK:        req.TopK,
			})
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Str("descriptor", descriptor).Msg("Search failed")
				rw.InternalError("search failed")
				return
			}
			batch.Searches = append(batch.Searches, resp)
		}
		rw.Success(batch)
		return
	}

	resp, err := session.Search(r.Context(), pipeline.Request{
		Descriptor:  req.Descriptor,
		Constraints: req.Constraints(),
		TopK:        req.TopK,
	})
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Search failed")
		rw.InternalError("search failed")
		return
	}

	rw.Success(resp)
}

// BatchSearchResponse wraps the per-descriptor results of a
// multi-descriptor search.
type BatchSearchResponse struct {
	Searches []pipeline.Response `json:"searches"`
}

// HealthLive handles GET /healthz/live: the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]string{"status": "ok"})
}

// HealthReady handles GET /healthz/ready: the pipeline is wired and
// able to take searches.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.controller == nil {
		NewResponseWriter(w, r).ServiceUnavailable("pipeline not ready")
		return
	}
	WriteSuccess(w, r, map[string]string{"status": "ready"})
}

// internal/app/features/dashboard/steps.go
package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
	"github.com/dalemusser/salesmake/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

type linkRequest struct {
	Link string `json:"link"`
}

type campaignsLiveRequest struct {
	Live bool `json:"live"`
}

// ServeSteps handles GET /dashboard/projects/{id}/steps.
func (h *Handler) ServeSteps(w http.ResponseWriter, r *http.Request) {
	s, id, ok := h.sessionAndProject(w, r)
	if !ok {
		return
	}
	view, err := s.StepView(id)
	if err != nil {
		h.ErrLog.Write(w, r, "step view", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, view)
}

// HandleAttachLink handles POST /dashboard/projects/{id}/steps/{key}/link.
// A non-empty link must be an http(s) URL and advances progress to the
// step's threshold.
func (h *Handler) HandleAttachLink(w http.ResponseWriter, r *http.Request) {
	s, id, ok := h.sessionAndProject(w, r)
	if !ok {
		return
	}
	var req linkRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "attach link: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	view, err := s.AttachLink(ctx, id, chi.URLParam(r, "key"), req.Link)
	if err != nil {
		h.ErrLog.Write(w, r, "attach link", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, view)
}

// HandleCampaignsLive handles PUT /dashboard/projects/{id}/campaigns-live.
func (h *Handler) HandleCampaignsLive(w http.ResponseWriter, r *http.Request) {
	s, id, ok := h.sessionAndProject(w, r)
	if !ok {
		return
	}
	var req campaignsLiveRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "campaigns live: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	view, err := s.SetCampaignsLive(ctx, id, req.Live)
	if err != nil {
		h.ErrLog.Write(w, r, "campaigns live", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, view)
}

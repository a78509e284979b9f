// internal/app/features/dashboard/projects.go
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
	dashsvc "github.com/dalemusser/salesmake/internal/app/system/dashboard"
	"github.com/dalemusser/salesmake/internal/app/system/projectstate"
	"github.com/dalemusser/salesmake/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type setActiveRequest struct {
	ProjectID string `json:"project_id"`
}

type fieldRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type itemRequest struct {
	Item string `json:"item"`
}

// HandleCreateProject handles POST /dashboard/projects (admins only).
func (h *Handler) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := s.CreateProject(ctx)
	if err != nil {
		h.ErrLog.Write(w, r, "create project", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, p)
}

// HandleSetActive handles PUT /dashboard/active.
func (h *Handler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "set active: decode", err)
		return
	}
	id, err := primitive.ObjectIDFromHex(req.ProjectID)
	if err != nil || !s.SetActive(id) {
		uierrors.WriteError(w, http.StatusNotFound, uierrors.MsgNotFound)
		return
	}
	h.writeView(w, r, s)
}

// HandleReload handles POST /dashboard/reload.
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := s.Reload(ctx); err != nil {
		h.ErrLog.Write(w, r, "reload dashboard", err)
		return
	}
	h.writeView(w, r, s)
}

// HandleUpdateField handles PATCH /dashboard/projects/{id}.
//
// Body: {"field": "emails_sent" | "client_info.company" | ..., "value": ...}
func (h *Handler) HandleUpdateField(w http.ResponseWriter, r *http.Request) {
	s, id, ok := h.sessionAndProject(w, r)
	if !ok {
		return
	}

	var req fieldRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "update field: decode", err)
		return
	}
	edit, err := projectstate.ParseFieldPath(req.Field, req.Value)
	if err != nil {
		h.ErrLog.Write(w, r, "update field: parse", err)
		return
	}
	h.apply(w, r, s, id, edit)
}

// HandleAddICPItem handles POST /dashboard/projects/{id}/icp/{section}.
func (h *Handler) HandleAddICPItem(w http.ResponseWriter, r *http.Request) {
	s, id, ok := h.sessionAndProject(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "add icp item: decode", err)
		return
	}
	p, ok := s.Project(id)
	if !ok {
		h.ErrLog.Write(w, r, "add icp item", projectstate.ErrUnknownProject)
		return
	}
	edit, err := projectstate.AddICPItem(p, chi.URLParam(r, "section"), req.Item)
	if err != nil {
		h.ErrLog.Write(w, r, "add icp item", err)
		return
	}
	h.apply(w, r, s, id, edit)
}

// HandleEditICPItem handles PUT /dashboard/projects/{id}/icp/{section}/{index}.
func (h *Handler) HandleEditICPItem(w http.ResponseWriter, r *http.Request) {
	s, id, ok := h.sessionAndProject(w, r)
	if !ok {
		return
	}
	index, err := itemIndex(r)
	if err != nil {
		h.ErrLog.Write(w, r, "edit icp item", err)
		return
	}
	var req itemRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "edit icp item: decode", err)
		return
	}
	p, ok := s.Project(id)
	if !ok {
		h.ErrLog.Write(w, r, "edit icp item", projectstate.ErrUnknownProject)
		return
	}
	edit, err := projectstate.EditICPItem(p, chi.URLParam(r, "section"), index, req.Item)
	if err != nil {
		h.ErrLog.Write(w, r, "edit icp item", err)
		return
	}
	h.apply(w, r, s, id, edit)
}

// HandleRemoveICPItem handles DELETE /dashboard/projects/{id}/icp/{section}/{index}.
func (h *Handler) HandleRemoveICPItem(w http.ResponseWriter, r *http.Request) {
	s, id, ok := h.sessionAndProject(w, r)
	if !ok {
		return
	}
	index, err := itemIndex(r)
	if err != nil {
		h.ErrLog.Write(w, r, "remove icp item", err)
		return
	}
	p, ok := s.Project(id)
	if !ok {
		h.ErrLog.Write(w, r, "remove icp item", projectstate.ErrUnknownProject)
		return
	}
	edit, err := projectstate.RemoveICPItem(p, chi.URLParam(r, "section"), index)
	if err != nil {
		h.ErrLog.Write(w, r, "remove icp item", err)
		return
	}
	h.apply(w, r, s, id, edit)
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, s *dashsvc.Session, id primitive.ObjectID, edit projectstate.FieldEdit) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := s.UpdateField(ctx, id, edit); err != nil {
		h.ErrLog.Write(w, r, "update project field", err)
		return
	}
	h.Log.Debug("project field updated",
		zap.String("project_id", id.Hex()),
		zap.String("field", edit.Path()))
	h.writeProject(w, r, s, id)
}

func (h *Handler) sessionAndProject(w http.ResponseWriter, r *http.Request) (*dashsvc.Session, primitive.ObjectID, bool) {
	s, ok := h.session(w, r)
	if !ok {
		return nil, primitive.NilObjectID, false
	}
	id, ok := projectID(w, r)
	if !ok {
		return nil, primitive.NilObjectID, false
	}
	return s, id, true
}

func itemIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: item index %q", uierrors.ErrBadRequest, raw)
	}
	return n, nil
}

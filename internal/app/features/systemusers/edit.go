// internal/app/features/systemusers/edit.go
package systemusers

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
	"github.com/dalemusser/salesmake/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type assignmentRequest struct {
	Assigned bool `json:"assigned"`
}

// HandleDelete handles DELETE /users/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.WriteError(w, http.StatusNotFound, uierrors.MsgNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.Delete(ctx, actor(r), uid); err != nil {
		h.ErrLog.Write(w, r, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAssignment handles PUT /users/{id}/projects/{projectID}.
//
// Body: {"assigned": true|false}
func (h *Handler) HandleAssignment(w http.ResponseWriter, r *http.Request) {
	uid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.WriteError(w, http.StatusNotFound, uierrors.MsgNotFound)
		return
	}
	pid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))
	if err != nil {
		uierrors.WriteError(w, http.StatusNotFound, uierrors.MsgNotFound)
		return
	}

	var req assignmentRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "toggle assignment: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.ToggleAssignment(ctx, actor(r), uid, pid, req.Assigned); err != nil {
		h.ErrLog.Write(w, r, "toggle assignment", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]bool{"assigned": req.Assigned})
}

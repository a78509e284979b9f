// internal/app/features/systemusers/new.go
package systemusers

import (
	"context"
	"fmt"
	"net/http"

	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
	"github.com/dalemusser/salesmake/internal/app/system/timeouts"
	"github.com/dalemusser/salesmake/internal/app/system/usermgmt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type inviteRequest struct {
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	ProjectIDs []string `json:"project_ids"`
}

// HandleInvite handles POST /users.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "invite user: decode", err)
		return
	}

	ids, err := parseProjectIDs(req.ProjectIDs)
	if err != nil {
		h.ErrLog.Write(w, r, "invite user", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Users.Invite(ctx, actor(r), usermgmt.InviteInput{
		Email:      req.Email,
		Name:       req.Name,
		Role:       req.Role,
		ProjectIDs: ids,
	})
	if err != nil {
		h.ErrLog.Write(w, r, "invite user", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, p)
}

func parseProjectIDs(raw []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, fmt.Errorf("%w: project id %q", usermgmt.ErrInvalidInput, s)
		}
		out = append(out, id)
	}
	return out, nil
}

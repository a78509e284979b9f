// internal/app/features/logout/handler.go
package logout

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
	"github.com/dalemusser/salesmake/internal/app/system/auth"
	"github.com/dalemusser/salesmake/internal/app/system/dashboard"
	"github.com/dalemusser/salesmake/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Registry   *dashboard.Registry
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(reg *dashboard.Registry, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Registry:   reg,
		SessionMgr: sessionMgr,
		Log:        logger,
	}
}

// ServeLogout handles POST /logout. It ends the dashboard session the
// cookie points at, if any, and always expires the cookie.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if tok, ok := h.SessionMgr.Token(r); ok {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()
		if err := h.Registry.SignOut(ctx, tok); err != nil {
			// Already gone (expired or signed out elsewhere); the cookie
			// still needs clearing.
			h.Log.Debug("logout: no live session for token", zap.Error(err))
		}
	}

	if err := h.SessionMgr.Clear(w, r); err != nil {
		h.Log.Error("logout: clear session cookie", zap.Error(err))
	}

	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
	"github.com/dalemusser/salesmake/internal/app/system/auth"
	"github.com/dalemusser/salesmake/internal/app/system/dashboard"
	"github.com/dalemusser/salesmake/internal/app/system/ratelimit"
	"github.com/dalemusser/salesmake/internal/app/system/resolver"
	"github.com/dalemusser/salesmake/internal/app/system/timeouts"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Registry   *dashboard.Registry
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.AuthLimiter
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(reg *dashboard.Registry, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Registry:   reg,
		SessionMgr: sessionMgr,
		Limiter:    ratelimit.NewAuthLimiter(),
		ErrLog:     errLog,
		Log:        logger,
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type signedInResponse struct {
	Profile  models.Profile   `json:"profile"`
	Projects []models.Project `json:"projects"`
}

// HandleSignIn handles POST /auth/signin.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "sign in: decode", err)
		return
	}
	if !h.allow(w, r, req.Email) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	h.endPrevious(ctx, r)

	token, s, err := h.Registry.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		h.ErrLog.Write(w, r, "sign in", err)
		return
	}
	h.Limiter.Succeeded(req.Email)
	h.finish(w, r, token, s)
}

// HandleSignUp handles POST /auth/signup.
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "sign up: decode", err)
		return
	}
	if !h.allow(w, r, req.Email) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	h.endPrevious(ctx, r)

	token, s, err := h.Registry.SignUp(ctx, req.Email, req.Password, resolver.SignUpInfo{
		Name: req.Name,
		Role: req.Role,
	})
	if err != nil {
		h.ErrLog.Write(w, r, "sign up", err)
		return
	}
	h.finish(w, r, token, s)
}

// allow answers 429 once the client or the account has made too many
// attempts.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, email string) bool {
	ok, msg := h.Limiter.Check(r, email)
	if !ok {
		h.Log.Warn("auth attempt throttled",
			zap.String("ip", ratelimit.ClientIP(r)),
			zap.String("path", r.URL.Path))
		uierrors.WriteError(w, http.StatusTooManyRequests, msg)
	}
	return ok
}

// endPrevious signs out a session the browser already holds, so one cookie
// never leaves an orphaned session behind.
func (h *Handler) endPrevious(ctx context.Context, r *http.Request) {
	if tok, ok := h.SessionMgr.Token(r); ok {
		_ = h.Registry.SignOut(ctx, tok)
	}
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request, token string, s *dashboard.Session) {
	if err := h.SessionMgr.SetToken(w, r, token); err != nil {
		h.Log.Error("save session cookie", zap.Error(err))
		_ = h.Registry.SignOut(r.Context(), token)
		uierrors.WriteError(w, http.StatusInternalServerError, uierrors.MsgInternal)
		return
	}

	p, err := s.Profile()
	if err != nil {
		h.ErrLog.Write(w, r, "sign in: profile", err)
		return
	}
	h.Log.Info("signed in",
		zap.String("profile_id", p.ID.Hex()),
		zap.String("role", p.Role))

	uierrors.WriteJSON(w, http.StatusOK, signedInResponse{
		Profile:  p,
		Projects: s.Projects(),
	})
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const tokenKey = "dashboard_token"

// Viewer is the signed-in user as seen by HTTP handlers. It is rebuilt on
// every request from the dashboard session the cookie token points at.
type Viewer struct {
	Token     string
	ProfileID string
	Name      string
	Email     string
	Role      string
}

// ViewerLookup maps a session token to the viewer it belongs to.
// ok=false means the token is unknown or its session has ended.
type ViewerLookup func(token string) (*Viewer, bool)

// SessionManager holds the cookie store carrying the dashboard session token.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// NewSessionManager builds the cookie store. In production (secure=true)
// cookies are Secure with SameSite=None; locally they are Lax so plain http
// works.
func NewSessionManager(sessionKey, name, domain string, ttl time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "salesmake-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("ttl", ttl))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetToken stores token in the session cookie.
func (m *SessionManager) SetToken(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[tokenKey] = token
	return sess.Save(r, w)
}

// Token returns the token held by the request's session cookie.
// A cookie that no longer decodes (rotated key, tampering) reads as absent.
func (m *SessionManager) Token(r *http.Request) (string, bool) {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			m.log.Debug("discarding undecodable session cookie", zap.Error(err))
		} else {
			m.log.Warn("session cookie read failed", zap.Error(err))
		}
		return "", false
	}
	tok, ok := sess.Values[tokenKey].(string)
	return tok, ok && tok != ""
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	delete(sess.Values, tokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

type ctxKey string

const viewerKey ctxKey = "viewer"

// CurrentViewer returns the viewer injected by LoadViewer.
func CurrentViewer(r *http.Request) (*Viewer, bool) {
	v, ok := r.Context().Value(viewerKey).(*Viewer)
	return v, ok
}

// WithViewer returns r carrying v. LoadViewer uses it; so do handler tests.
func WithViewer(r *http.Request, v *Viewer) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), viewerKey, v))
}

// LoadViewer injects the viewer into the request context when the session
// cookie names a live dashboard session.
func (m *SessionManager) LoadViewer(lookup ViewerLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok, ok := m.Token(r); ok {
				if v, found := lookup(tok); found {
					r = WithViewer(r, v)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSignedIn answers 401 when no viewer is present.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentViewer(r); !ok {
			deny(w, http.StatusUnauthorized, "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 without a viewer and 403 when the viewer's role is
// not one of allowed.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, ok := CurrentViewer(r)
			if !ok {
				deny(w, http.StatusUnauthorized, "sign in required")
				return
			}
			if _, has := set[strings.ToLower(v.Role)]; !has {
				deny(w, http.StatusForbidden, "not permitted for this role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

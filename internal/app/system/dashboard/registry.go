package dashboard

import (
	"context"
	"sync"

	"github.com/dalemusser/salesmake/internal/app/system/auth"
	"github.com/dalemusser/salesmake/internal/app/system/identity"
	"github.com/dalemusser/salesmake/internal/app/system/resolver"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry maps opaque tokens to live sessions.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, sessions: make(map[string]*Session)}
}

// SignIn starts a session for email and returns its token.
func (r *Registry) SignIn(ctx context.Context, email, password string) (string, *Session, error) {
	s := NewSession(r.deps)
	if err := s.SignIn(ctx, email, password); err != nil {
		s.Close()
		return "", nil, err
	}
	return r.add(s), s, nil
}

// SignUp registers email and starts a session for it.
func (r *Registry) SignUp(ctx context.Context, email, password string, info resolver.SignUpInfo) (string, *Session, error) {
	s := NewSession(r.deps)
	if err := s.SignUp(ctx, email, password, info); err != nil {
		s.Close()
		return "", nil, err
	}
	return r.add(s), s, nil
}

func (r *Registry) add(s *Session) string {
	token := uuid.NewString()

	r.mu.Lock()
	r.sessions[token] = s
	r.mu.Unlock()

	s.mu.Lock()
	s.onEnd = func() { r.remove(token) }
	s.mu.Unlock()
	return token
}

func (r *Registry) remove(token string) {
	r.mu.Lock()
	delete(r.sessions, token)
	r.mu.Unlock()
}

// Get returns the live session for token. A session whose identity has
// expired is closed and reported as missing.
func (r *Registry) Get(ctx context.Context, token string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[token]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	if !s.Alive(ctx) {
		// CurrentSession emitted SignedOut for the expired identity, which
		// closed the session; Close is idempotent.
		s.Close()
		return nil, false
	}
	return s, true
}

// SignOut ends the session for token.
func (r *Registry) SignOut(ctx context.Context, token string) error {
	r.mu.Lock()
	s, ok := r.sessions[token]
	r.mu.Unlock()
	if !ok {
		return &identity.AuthError{Op: "sign out", Err: identity.ErrNoSession}
	}
	err := s.SignOut(ctx)
	s.Close()
	return err
}

// Lookup adapts the registry for auth.SessionManager.LoadViewer.
func (r *Registry) Lookup(token string) (*auth.Viewer, bool) {
	s, ok := r.Get(context.Background(), token)
	if !ok {
		return nil, false
	}
	p, err := s.Profile()
	if err != nil {
		return nil, false
	}
	return &auth.Viewer{
		Token:     token,
		ProfileID: p.ID.Hex(),
		Name:      p.Name,
		Email:     p.Email,
		Role:      p.Role,
	}, true
}

// Sweep closes every session whose identity has expired and returns how
// many were closed.
func (r *Registry) Sweep(ctx context.Context) int {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()

	n := 0
	for _, s := range all {
		if !s.Alive(ctx) {
			s.Close()
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll ends every session. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	if len(all) > 0 {
		r.deps.Logger.Info("dashboard sessions closed", zap.Int("count", len(all)))
	}
}

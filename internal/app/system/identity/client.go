package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSessionTTL is used when NewClient is given a zero ttl.
const DefaultSessionTTL = 24 * time.Hour

// Client is a Provider for one viewer. It holds at most one session at a
// time and notifies subscribers of every transition.
type Client struct {
	dir *Directory
	ttl time.Duration
	log *zap.Logger
	now func() time.Time

	mu        sync.Mutex
	session   *Session
	listeners map[int]func(Event)
	nextSub   int
}

var _ Provider = (*Client)(nil)

func NewClient(dir *Directory, ttl time.Duration, logger *zap.Logger) *Client {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Client{
		dir:       dir,
		ttl:       ttl,
		log:       logger,
		now:       time.Now,
		listeners: make(map[int]func(Event)),
	}
}

// CurrentSession returns the live session, or nil. An expired session is
// dropped and reported as a sign-out.
func (c *Client) CurrentSession(_ context.Context) (*Session, error) {
	c.mu.Lock()
	s := c.session
	if s != nil && s.Expired(c.now()) {
		c.session = nil
		c.mu.Unlock()
		c.emit(Event{Kind: SignedOut})
		return nil, nil
	}
	c.mu.Unlock()
	if s == nil {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	id, err := c.dir.Verify(ctx, email, password)
	if err != nil {
		c.log.Info("sign-in failed", zap.String("email", email), zap.Error(err))
		return nil, &AuthError{Op: "sign in", Err: err}
	}
	return c.start(id), nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	id, err := c.dir.Register(ctx, email, password)
	if err != nil {
		return nil, &AuthError{Op: "sign up", Err: err}
	}
	c.log.Info("identity registered", zap.String("identity_id", id.ID))
	return c.start(id), nil
}

func (c *Client) SignOut(_ context.Context) error {
	c.mu.Lock()
	had := c.session != nil
	c.session = nil
	c.mu.Unlock()

	if !had {
		return &AuthError{Op: "sign out", Err: ErrNoSession}
	}
	c.emit(Event{Kind: SignedOut})
	return nil
}

// Refresh issues a new access token and extends the expiry.
func (c *Client) Refresh(_ context.Context) (*Session, error) {
	c.mu.Lock()
	if c.session == nil || c.session.Expired(c.now()) {
		c.session = nil
		c.mu.Unlock()
		return nil, &AuthError{Op: "refresh", Err: ErrNoSession}
	}
	s := &Session{
		AccessToken: uuid.NewString(),
		Identity:    c.session.Identity,
		ExpiresAt:   c.now().Add(c.ttl),
	}
	c.session = s
	c.mu.Unlock()

	cp := *s
	c.emit(Event{Kind: TokenRefreshed, Session: &cp})
	return &cp, nil
}

func (c *Client) OnSessionChange(handler func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = handler
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) start(id Identity) *Session {
	s := &Session{
		AccessToken: uuid.NewString(),
		Identity:    id,
		ExpiresAt:   c.now().Add(c.ttl),
	}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	cp := *s
	c.emit(Event{Kind: SignedIn, Session: &cp})
	return &cp
}

func (c *Client) emit(ev Event) {
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

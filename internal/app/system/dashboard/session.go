// Package dashboard binds the per-viewer pieces of the dashboard together:
// one identity client, the resolved profile, the project model, progress
// trackers and the chat log. A Registry maps opaque tokens to sessions.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	projectstore "github.com/dalemusser/salesmake/internal/app/store/projects"
	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/system/chat"
	"github.com/dalemusser/salesmake/internal/app/system/identity"
	"github.com/dalemusser/salesmake/internal/app/system/inputval"
	"github.com/dalemusser/salesmake/internal/app/system/progress"
	"github.com/dalemusser/salesmake/internal/app/system/projectstate"
	"github.com/dalemusser/salesmake/internal/app/system/resolver"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrNotReady is wrapped in an AuthError when a session has no resolved
// profile, either before sign-in completes or after sign-out.
var ErrNotReady = errors.New("dashboard session not signed in")

// Deps are the shared collaborators every session is built from.
type Deps struct {
	Store      records.Store
	Directory  *identity.Directory
	SessionTTL time.Duration
	Logger     *zap.Logger
}

// Session is one signed-in viewer's dashboard.
type Session struct {
	client   *identity.Client
	resolver *resolver.Resolver
	model    *projectstate.Model
	tracker  *progress.Tracker
	chat     *chat.Log
	log      *zap.Logger

	mu       sync.Mutex
	resolved *resolver.Resolved
	notifier *progress.Notifier
	unsubs   []func()
	onEnd    func()
	ended    bool
}

// NewSession builds an unsigned session over deps.
func NewSession(deps Deps) *Session {
	s := &Session{
		client:   identity.NewClient(deps.Directory, deps.SessionTTL, deps.Logger),
		resolver: resolver.New(deps.Store, deps.Logger),
		model:    projectstate.New(projectstore.New(deps.Store), deps.Logger),
		tracker:  progress.NewTracker(),
		chat:     chat.New(),
		log:      deps.Logger,
		notifier: progress.NewNotifier(),
	}
	s.unsubs = append(s.unsubs,
		s.client.OnSessionChange(s.onIdentityEvent),
		s.model.Subscribe(s.onModelEvent),
	)
	return s
}

// SignIn authenticates and then resolves the profile and loads projects.
// If resolution fails the identity session is signed out again.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	sess, err := s.client.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	res, err := s.resolver.ResolveProfile(ctx, sess.Identity)
	if err != nil {
		_ = s.client.SignOut(ctx)
		return err
	}
	return s.establish(ctx, res)
}

// SignUp registers an identity, links or creates its profile and loads
// projects.
func (s *Session) SignUp(ctx context.Context, email, password string, info resolver.SignUpInfo) error {
	sess, err := s.client.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	res, err := s.resolver.LinkOrCreate(ctx, sess.Identity, info)
	if err != nil {
		_ = s.client.SignOut(ctx)
		return err
	}
	return s.establish(ctx, res)
}

// SignOut ends the identity session. Teardown runs from the sign-out event.
func (s *Session) SignOut(ctx context.Context) error {
	return s.client.SignOut(ctx)
}

// Reload re-resolves the profile and reloads its projects, picking up
// assignment changes made by an admin.
func (s *Session) Reload(ctx context.Context) error {
	cur, err := s.client.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if cur == nil {
		return &identity.AuthError{Op: "reload", Err: identity.ErrNoSession}
	}
	res, err := s.resolver.ResolveProfile(ctx, cur.Identity)
	if err != nil {
		return err
	}
	return s.establish(ctx, res)
}

// establish loads res's projects and only then adopts res, so a failed
// reload keeps the previous profile and project list together.
func (s *Session) establish(ctx context.Context, res *resolver.Resolved) error {
	before := s.model.Projects()

	loaded, err := s.model.Load(ctx, res.Profile.Role, res.Assigned)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.resolved = res
	s.mu.Unlock()

	s.forgetDropped(before, loaded)
	s.log.Info("dashboard session ready",
		zap.String("profile_id", res.Profile.ID.Hex()),
		zap.String("role", res.Profile.Role))
	return nil
}

// forgetDropped clears step data of projects that are no longer loaded.
func (s *Session) forgetDropped(before, after []models.Project) {
	kept := make(map[primitive.ObjectID]bool, len(after))
	for _, p := range after {
		kept[p.ID] = true
	}
	for _, p := range before {
		if !kept[p.ID] {
			s.tracker.Forget(p.ID.Hex())
		}
	}
}

// Alive reports whether the identity session is still valid.
func (s *Session) Alive(ctx context.Context) bool {
	cur, err := s.client.CurrentSession(ctx)
	return err == nil && cur != nil
}

// Profile returns the resolved profile.
func (s *Session) Profile() (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved == nil || s.ended {
		return models.Profile{}, &identity.AuthError{Op: "profile", Err: ErrNotReady}
	}
	return s.resolved.Profile, nil
}

func (s *Session) role() (string, error) {
	p, err := s.Profile()
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

func (s *Session) Projects() []models.Project { return s.model.Projects() }

func (s *Session) Active() (models.Project, bool) { return s.model.Active() }

// Project returns one loaded project.
func (s *Session) Project(id primitive.ObjectID) (models.Project, bool) { return s.model.Project(id) }

// SetActive selects a loaded project; false means id is not loaded.
func (s *Session) SetActive(id primitive.ObjectID) bool { return s.model.SetActive(id) }

// UpdateField writes one project field.
func (s *Session) UpdateField(ctx context.Context, projectID primitive.ObjectID, edit projectstate.FieldEdit) error {
	if _, err := s.role(); err != nil {
		return err
	}
	return s.model.Update(ctx, projectID, edit)
}

// CreateProject adds a placeholder project (admins only) and activates it.
func (s *Session) CreateProject(ctx context.Context) (models.Project, error) {
	role, err := s.role()
	if err != nil {
		return models.Project{}, err
	}
	return s.model.CreateProject(ctx, role)
}

// AttachLink stores a step's deliverable link and advances progress to
// the step's threshold when that moves it forward. A non-blank link must be
// an http or https URL; a blank one clears the stored link.
func (s *Session) AttachLink(ctx context.Context, projectID primitive.ObjectID, key, link string) (progress.View, error) {
	p, err := s.loadedProject(projectID)
	if err != nil {
		return progress.View{}, err
	}
	if step, ok := progress.StepByKey(key); !ok || step.Gate != progress.GateLink {
		return progress.View{}, progress.ErrUnknownStep
	}
	if strings.TrimSpace(link) != "" && !inputval.IsValidHTTPURL(link) {
		return progress.View{}, fmt.Errorf("attach link %s: %w", key, progress.ErrInvalidLink)
	}
	next, changed, err := s.tracker.AttachLink(projectID.Hex(), key, link, p.Progress)
	if err != nil {
		return progress.View{}, err
	}
	if changed {
		if err := s.setProgress(ctx, projectID, next); err != nil {
			return progress.View{}, err
		}
	}
	return s.StepView(projectID)
}

// SetCampaignsLive toggles the campaigns-live confirmation. Turning it on
// completes the project; turning it off from 100 rolls back to 80.
func (s *Session) SetCampaignsLive(ctx context.Context, projectID primitive.ObjectID, live bool) (progress.View, error) {
	p, err := s.loadedProject(projectID)
	if err != nil {
		return progress.View{}, err
	}
	next, changed := s.tracker.ToggleConfirmation(projectID.Hex(), live, p.Progress)
	if changed {
		if err := s.setProgress(ctx, projectID, next); err != nil {
			return progress.View{}, err
		}
	}
	return s.StepView(projectID)
}

func (s *Session) setProgress(ctx context.Context, projectID primitive.ObjectID, next int) error {
	edit, err := projectstate.TopLevel("progress", next)
	if err != nil {
		return err
	}
	return s.model.Update(ctx, projectID, edit)
}

// StepView returns the step panel for a loaded project.
func (s *Session) StepView(projectID primitive.ObjectID) (progress.View, error) {
	p, err := s.loadedProject(projectID)
	if err != nil {
		return progress.View{}, err
	}
	return s.tracker.View(projectID.Hex(), p.Progress), nil
}

func (s *Session) loadedProject(id primitive.ObjectID) (models.Project, error) {
	if _, err := s.role(); err != nil {
		return models.Project{}, err
	}
	p, ok := s.model.Project(id)
	if !ok {
		return models.Project{}, projectstate.ErrUnknownProject
	}
	return p, nil
}

// Chat returns the session's chat log.
func (s *Session) Chat() *chat.Log { return s.chat }

// Close tears the session down. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	unsubs := s.unsubs
	s.unsubs = nil
	onEnd := s.onEnd
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	s.model.Close()
	if onEnd != nil {
		onEnd()
	}
}

func (s *Session) onIdentityEvent(ev identity.Event) {
	switch ev.Kind {
	case identity.SignedOut:
		s.log.Info("identity signed out; closing dashboard session")
		s.Close()
	case identity.TokenRefreshed:
		s.log.Debug("identity token refreshed")
	}
}

// onModelEvent announces newly reached thresholds of the active project.
// Each threshold is announced once per session, whichever project reaches
// it first.
func (s *Session) onModelEvent(ev projectstate.Event) {
	switch ev.Kind {
	case projectstate.ProjectUpdated:
		if ev.Path != "progress" {
			return
		}
	case projectstate.Loaded, projectstate.ActiveChanged, projectstate.ProjectCreated:
	default:
		return
	}

	p, ok := s.model.Active()
	if !ok {
		return
	}
	if ev.Kind == projectstate.ProjectUpdated && ev.ProjectID != p.ID {
		return
	}

	for _, note := range s.notifier.Observe(p.Progress) {
		s.chat.Notify(note)
	}
}

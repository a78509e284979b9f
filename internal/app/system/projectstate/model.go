// Package projectstate owns the in-memory view of the projects a viewer can
// see, the active project selection, and every field edit made against them.
//
// The model never changes local state before the store confirms a write.
// No lock is held across a store call, so overlapping edits interleave and
// the last write wins. In particular a nested edit reads the parent
// document fresh from the store, merges one leaf and writes the whole
// parent back; two concurrent edits to different leaves of the same parent
// can lose one of them.
package projectstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/system/authz"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrClosed is returned when a store call finished after Close; its result
// was discarded.
var ErrClosed = errors.New("project state closed")

// ErrUnknownProject is returned for an edit of a project that is not loaded.
var ErrUnknownProject = errors.New("project not loaded")

// ProjectStore is the subset of the project store the model needs.
type ProjectStore interface {
	List(ctx context.Context) ([]models.Project, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, p models.Project) (models.Project, error)
	NestedField(ctx context.Context, id primitive.ObjectID, parent string) (records.Record, error)
	Patch(ctx context.Context, id primitive.ObjectID, patch records.Record) (time.Time, error)
}

// EventKind identifies a model change.
type EventKind int

const (
	Loaded EventKind = iota
	ActiveChanged
	ProjectUpdated
	ProjectCreated
)

func (k EventKind) String() string {
	switch k {
	case Loaded:
		return "loaded"
	case ActiveChanged:
		return "active_changed"
	case ProjectUpdated:
		return "project_updated"
	case ProjectCreated:
		return "project_created"
	}
	return "unknown"
}

// Event describes a change. ProjectID is zero for Loaded, and for
// ActiveChanged when the selection became empty.
type Event struct {
	Kind      EventKind
	ProjectID primitive.ObjectID
	Path      string // set for ProjectUpdated
}

// Model holds one viewer's projects.
type Model struct {
	store ProjectStore
	log   *zap.Logger

	mu        sync.Mutex
	projects  []models.Project
	active    primitive.ObjectID
	closed    bool
	listeners map[int]func(Event)
	nextSub   int
}

func New(store ProjectStore, logger *zap.Logger) *Model {
	return &Model{
		store:     store,
		log:       logger,
		listeners: make(map[int]func(Event)),
	}
}

// Subscribe registers fn for every subsequent event. Events are delivered
// synchronously, after the change, with no model lock held.
func (m *Model) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// emit must be called without m.mu held.
func (m *Model) emit(events ...Event) {
	m.mu.Lock()
	fns := make([]func(Event), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// Close tears the model down. Store calls still in flight have their
// results discarded, and no further events are delivered.
func (m *Model) Close() {
	m.mu.Lock()
	m.closed = true
	m.listeners = make(map[int]func(Event))
	m.mu.Unlock()
}

// Load refreshes the project list. Admins see every project; other roles
// see exactly the assigned list they pass in. When nothing is active the
// first project becomes active; when the active project is no longer in the
// list the selection falls back to the first project, or to none for an
// empty list.
func (m *Model) Load(ctx context.Context, role string, assigned []models.Project) ([]models.Project, error) {
	var list []models.Project
	if authz.RequireAdmin(role) == nil {
		all, err := m.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load projects: %w", err)
		}
		list = all
	} else {
		list = cloneProjects(assigned)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.projects = list
	prev := m.active
	if m.indexLocked(m.active) < 0 {
		m.active = primitive.NilObjectID
		if len(list) > 0 {
			m.active = list[0].ID
		}
	}
	cur := m.active
	out := cloneProjects(m.projects)
	m.mu.Unlock()

	m.log.Debug("projects loaded",
		zap.String("role", role),
		zap.Int("count", len(out)),
		zap.String("active", hexOrEmpty(cur)))

	events := []Event{{Kind: Loaded}}
	if cur != prev {
		events = append(events, Event{Kind: ActiveChanged, ProjectID: cur})
	}
	m.emit(events...)
	return out, nil
}

// Projects returns a copy of the loaded projects.
func (m *Model) Projects() []models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneProjects(m.projects)
}

// Project returns a copy of one loaded project.
func (m *Model) Project(id primitive.ObjectID) (models.Project, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return models.Project{}, false
	}
	return cloneProject(m.projects[i]), true
}

// Active returns the active project, if any.
func (m *Model) Active() (models.Project, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(m.active)
	if i < 0 {
		return models.Project{}, false
	}
	return cloneProject(m.projects[i]), true
}

// SetActive selects a loaded project. It does not touch the store and
// reports false, leaving the selection alone, when id is not loaded.
func (m *Model) SetActive(id primitive.ObjectID) bool {
	m.mu.Lock()
	if m.indexLocked(id) < 0 {
		m.mu.Unlock()
		return false
	}
	changed := m.active != id
	m.active = id
	m.mu.Unlock()

	if changed {
		m.emit(Event{Kind: ActiveChanged, ProjectID: id})
	}
	return true
}

// Update applies edit to the project with projectID, in the store first and
// then locally. On a store failure local state is untouched and the error
// is returned.
func (m *Model) Update(ctx context.Context, projectID primitive.ObjectID, edit FieldEdit) error {
	if !edit.valid() {
		return ErrInvalidEdit
	}

	m.mu.Lock()
	known := m.indexLocked(projectID) >= 0
	m.mu.Unlock()
	if !known {
		return ErrUnknownProject
	}

	var patch records.Record
	if edit.IsNested() {
		cur, err := m.store.NestedField(ctx, projectID, edit.Field())
		if err != nil {
			return fmt.Errorf("read %s: %w", edit.Field(), err)
		}
		merged := make(records.Record, len(cur)+1)
		for k, v := range cur {
			merged[k] = v
		}
		merged[edit.Child()] = edit.Value()
		patch = records.Record{edit.Field(): merged}
	} else {
		patch = records.Record{edit.Field(): edit.Value()}
	}

	updatedAt, err := m.store.Patch(ctx, projectID, patch)
	if err != nil {
		m.log.Warn("project update failed",
			zap.String("project_id", projectID.Hex()),
			zap.String("field", edit.Path()),
			zap.Error(err))
		return fmt.Errorf("update %s: %w", edit.Path(), err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	i := m.indexLocked(projectID)
	if i >= 0 {
		edit.apply(&m.projects[i])
		m.projects[i].UpdatedAt = updatedAt
	}
	m.mu.Unlock()

	// The project may have been dropped by a concurrent Load; the write
	// stands but there is nothing local to update.
	if i < 0 {
		return nil
	}
	m.emit(Event{Kind: ProjectUpdated, ProjectID: projectID, Path: edit.Path()})
	return nil
}

// CreateProject inserts a project with placeholder values, appends it and
// makes it active. Only admins may create projects; for other roles it
// returns authz.ErrForbidden and leaves the list as it was.
func (m *Model) CreateProject(ctx context.Context, role string) (models.Project, error) {
	if err := authz.RequireAdmin(role); err != nil {
		return models.Project{}, fmt.Errorf("create project: %w", err)
	}

	n, err := m.store.Count(ctx)
	if err != nil {
		return models.Project{}, fmt.Errorf("create project: %w", err)
	}

	p, err := m.store.Create(ctx, NewProjectDefaults(n+1))
	if err != nil {
		return models.Project{}, fmt.Errorf("create project: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return models.Project{}, ErrClosed
	}
	m.projects = append(m.projects, p)
	m.active = p.ID
	m.mu.Unlock()

	m.log.Info("project created",
		zap.String("project_id", p.ID.Hex()),
		zap.String("name", p.Name))

	m.emit(
		Event{Kind: ProjectCreated, ProjectID: p.ID},
		Event{Kind: ActiveChanged, ProjectID: p.ID},
	)
	return cloneProject(p), nil
}

// NewProjectDefaults returns the placeholder project created as the n-th
// project.
func NewProjectDefaults(n int) models.Project {
	return models.Project{
		Name:                 fmt.Sprintf("New Project %d", n),
		Info:                 "New project description - click to edit",
		SpecialistName:       "Unassigned",
		ClientInfo:           models.ClientInfo{},
		IdealCustomerProfile: models.EmptyICP(),
	}
}

func (m *Model) indexLocked(id primitive.ObjectID) int {
	if id.IsZero() {
		return -1
	}
	for i := range m.projects {
		if m.projects[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneProjects(in []models.Project) []models.Project {
	out := make([]models.Project, len(in))
	for i := range in {
		out[i] = cloneProject(in[i])
	}
	return out
}

func cloneProject(p models.Project) models.Project {
	icp := &p.IdealCustomerProfile
	for _, key := range models.ICPSections {
		items, _ := icp.Section(key)
		icp.SetSection(key, append([]string{}, items...))
	}
	return p
}

func hexOrEmpty(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}

package projectstate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	projectstore "github.com/dalemusser/salesmake/internal/app/store/projects"
	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/store/records/memrecords"
	"github.com/dalemusser/salesmake/internal/app/system/authz"
	"github.com/dalemusser/salesmake/internal/app/system/projectstate"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	mem      *memrecords.Store
	projects *projectstore.Store
	model    *projectstate.Model
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mem := memrecords.New()
	ps := projectstore.New(mem)
	return &env{mem: mem, projects: ps, model: projectstate.New(ps, zap.NewNop())}
}

func (e *env) seed(t *testing.T, p models.Project) models.Project {
	t.Helper()
	created, err := e.projects.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return created
}

// mustEdit unwraps an edit constructor that is expected to succeed.
func mustEdit(e projectstate.FieldEdit, err error) projectstate.FieldEdit {
	if err != nil {
		panic(err)
	}
	return e
}

func TestLoad_AdminSeesAll_ActiveDefaultsToFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p1 := e.seed(t, models.Project{Name: "P1"})
	e.seed(t, models.Project{Name: "P2", Progress: 100})

	list, err := e.model.Load(ctx, models.RoleAdmin, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("projects: got %d, want 2", len(list))
	}
	active, ok := e.model.Active()
	if !ok || active.ID != p1.ID {
		t.Errorf("active: got %v/%v, want P1", active.Name, ok)
	}
}

func TestLoad_NonAdminUsesAssignedListUnchanged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p1 := e.seed(t, models.Project{Name: "P1"})
	p2 := e.seed(t, models.Project{Name: "P2"})

	list, err := e.model.Load(ctx, models.RoleClient, []models.Project{p2, p1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != p2.ID || list[1].ID != p1.ID {
		t.Errorf("expected assigned order [P2 P1], got %v", list)
	}
	if n := e.mem.CountCalls(records.OpSelect, records.ProjectsCollection); n != 0 {
		t.Errorf("non-admin load should not query projects, got %d selects", n)
	}
}

func TestLoad_ActiveVanishes_FallsBackToFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p1 := e.seed(t, models.Project{Name: "P1"})
	p2 := e.seed(t, models.Project{Name: "P2"})

	if _, err := e.model.Load(ctx, models.RoleSpecialist, []models.Project{p1, p2}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !e.model.SetActive(p2.ID) {
		t.Fatal("SetActive(P2) should succeed")
	}

	// P2 unassigned while viewed
	if _, err := e.model.Load(ctx, models.RoleSpecialist, []models.Project{p1}); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	active, ok := e.model.Active()
	if !ok || active.ID != p1.ID {
		t.Errorf("active should fall back to P1, got %v/%v", active.Name, ok)
	}

	if _, err := e.model.Load(ctx, models.RoleSpecialist, nil); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, ok := e.model.Active(); ok {
		t.Error("empty list should leave no active project")
	}
}

func TestLoad_KeepsActiveWhenStillPresent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, models.Project{Name: "P1"})
	p2 := e.seed(t, models.Project{Name: "P2"})

	_, _ = e.model.Load(ctx, models.RoleAdmin, nil)
	e.model.SetActive(p2.ID)
	_, _ = e.model.Load(ctx, models.RoleAdmin, nil)

	if active, _ := e.model.Active(); active.ID != p2.ID {
		t.Errorf("active: got %s, want P2", active.Name)
	}
}

func TestLoad_StoreError(t *testing.T) {
	e := newEnv(t)
	boom := errors.New("backend down")
	e.mem.FailOn(records.OpSelect, records.ProjectsCollection, boom)

	_, err := e.model.Load(context.Background(), models.RoleAdmin, nil)
	if !errors.Is(err, boom) || !records.IsStoreError(err) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestSetActive_UnknownIDIsNoop(t *testing.T) {
	e := newEnv(t)
	p1 := e.seed(t, models.Project{Name: "P1"})
	_, _ = e.model.Load(context.Background(), models.RoleAdmin, nil)

	if e.model.SetActive(primitive.NewObjectID()) {
		t.Error("SetActive should report false for an unknown id")
	}
	if active, _ := e.model.Active(); active.ID != p1.ID {
		t.Error("selection should be unchanged")
	}
}

func TestScenario_AdminEditsSecondProject(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p1 := e.seed(t, models.Project{Name: "P1", Progress: 0})
	p2 := e.seed(t, models.Project{Name: "P2", Progress: 100})

	if _, err := e.model.Load(ctx, models.RoleAdmin, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if active, _ := e.model.Active(); active.ID != p1.ID {
		t.Fatalf("active should default to P1")
	}
	e.model.SetActive(p2.ID)
	if active, _ := e.model.Active(); active.ID != p2.ID {
		t.Fatalf("active should be P2")
	}

	edit := mustEdit(projectstate.TopLevel("emails_sent", 5))
	if err := e.model.Update(ctx, p2.ID, edit); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got2, _ := e.model.Project(p2.ID)
	if got2.EmailsSent != 5 {
		t.Errorf("P2 emails_sent: got %d, want 5", got2.EmailsSent)
	}
	got1, _ := e.model.Project(p1.ID)
	if got1.EmailsSent != 0 || got1.Name != "P1" {
		t.Errorf("P1 should be untouched, got %+v", got1)
	}

	stored, _ := e.projects.GetByID(ctx, p2.ID)
	if stored.EmailsSent != 5 {
		t.Errorf("stored emails_sent: got %d, want 5", stored.EmailsSent)
	}
}

func TestUpdate_NestedKeepsSiblings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.seed(t, models.Project{
		Name:       "P",
		ClientInfo: models.ClientInfo{Name: "A", Email: "a@x.com", Company: "Co"},
	})
	_, _ = e.model.Load(ctx, models.RoleAdmin, nil)

	edit := mustEdit(projectstate.ParseFieldPath("client_info.email", "b@x.com"))
	if err := e.model.Update(ctx, p.ID, edit); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	want := models.ClientInfo{Name: "A", Email: "b@x.com", Company: "Co"}
	local, _ := e.model.Project(p.ID)
	if local.ClientInfo != want {
		t.Errorf("local client_info: got %+v, want %+v", local.ClientInfo, want)
	}
	stored, _ := e.projects.GetByID(ctx, p.ID)
	if stored.ClientInfo != want {
		t.Errorf("stored client_info: got %+v, want %+v", stored.ClientInfo, want)
	}
}

func TestUpdate_NestedReadsParentFresh(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.seed(t, models.Project{ClientInfo: models.ClientInfo{Name: "A", Email: "a@x.com", Company: "Co"}})
	_, _ = e.model.Load(ctx, models.RoleAdmin, nil)

	// another writer changes a sibling leaf behind the model's back
	_, err := e.projects.Patch(ctx, p.ID, records.Record{
		"client_info": records.Record{"name": "A", "email": "a@x.com", "company": "NewCo"},
	})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	edit := mustEdit(projectstate.Nested("client_info", "name", "Alex"))
	if err := e.model.Update(ctx, p.ID, edit); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if n := e.mem.CountCalls(records.OpSelectOne, records.ProjectsCollection); n != 1 {
		t.Errorf("expected one fresh read of the parent, got %d", n)
	}
	stored, _ := e.projects.GetByID(ctx, p.ID)
	want := models.ClientInfo{Name: "Alex", Email: "a@x.com", Company: "NewCo"}
	if stored.ClientInfo != want {
		t.Errorf("stored: got %+v, want %+v", stored.ClientInfo, want)
	}
}

func TestUpdate_StoreFailureLeavesLocalState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.seed(t, models.Project{Name: "Before"})
	_, _ = e.model.Load(ctx, models.RoleAdmin, nil)

	boom := errors.New("write failed")
	e.mem.FailOn(records.OpUpdate, records.ProjectsCollection, boom)

	edit := mustEdit(projectstate.TopLevel("project_name", "After"))
	err := e.model.Update(ctx, p.ID, edit)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}

	local, _ := e.model.Project(p.ID)
	if local.Name != "Before" {
		t.Errorf("local name: got %q, want Before", local.Name)
	}
}

func TestUpdate_NestedReadFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.seed(t, models.Project{})
	_, _ = e.model.Load(ctx, models.RoleAdmin, nil)

	e.mem.FailOn(records.OpSelectOne, records.ProjectsCollection, errors.New("read failed"))

	edit := mustEdit(projectstate.Nested("client_info", "company", "Co"))
	if err := e.model.Update(ctx, p.ID, edit); !records.IsStoreError(err) {
		t.Fatalf("expected store error, got %v", err)
	}
	if n := e.mem.CountCalls(records.OpUpdate, records.ProjectsCollection); n != 0 {
		t.Errorf("no write should follow a failed read, got %d", n)
	}
}

func TestUpdate_UnknownProject(t *testing.T) {
	e := newEnv(t)
	edit := mustEdit(projectstate.TopLevel("progress", 20))
	if err := e.model.Update(context.Background(), primitive.NewObjectID(), edit); !errors.Is(err, projectstate.ErrUnknownProject) {
		t.Errorf("expected ErrUnknownProject, got %v", err)
	}
}

func TestUpdate_ZeroEdit(t *testing.T) {
	e := newEnv(t)
	if err := e.model.Update(context.Background(), primitive.NewObjectID(), projectstate.FieldEdit{}); !errors.Is(err, projectstate.ErrInvalidEdit) {
		t.Errorf("expected ErrInvalidEdit, got %v", err)
	}
}

func TestCreateProject_Admin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, models.Project{Name: "Existing"})
	_, _ = e.model.Load(ctx, models.RoleAdmin, nil)

	p, err := e.model.CreateProject(ctx, models.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if p.Name != "New Project 2" {
		t.Errorf("name: got %q, want New Project 2", p.Name)
	}
	if p.Info != "New project description - click to edit" || p.SpecialistName != "Unassigned" {
		t.Errorf("defaults: %+v", p)
	}
	if p.Progress != 0 || p.EmailsSent != 0 || p.MeetingsBooked != 0 {
		t.Errorf("counters should be zero: %+v", p)
	}
	if p.IdealCustomerProfile.JobTitles == nil {
		t.Error("ICP lists should be empty, not nil")
	}

	if got := e.model.Projects(); len(got) != 2 || got[1].ID != p.ID {
		t.Errorf("new project should be appended, got %d projects", len(got))
	}
	if active, _ := e.model.Active(); active.ID != p.ID {
		t.Error("new project should become active")
	}
}

func TestCreateProject_NamesFromStoredCount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, models.Project{Name: "Existing"})
	_, _ = e.model.Load(ctx, models.RoleAdmin, nil)

	// inserted by another admin after this model loaded
	e.seed(t, models.Project{Name: "Elsewhere"})

	p, err := e.model.CreateProject(ctx, models.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if p.Name != "New Project 3" {
		t.Errorf("name: got %q, want New Project 3", p.Name)
	}
}

func TestCreateProject_CountFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(t, models.Project{Name: "Existing"})
	_, _ = e.model.Load(ctx, models.RoleAdmin, nil)

	e.mem.FailOn(records.OpSelect, records.ProjectsCollection, errors.New("boom"))
	if _, err := e.model.CreateProject(ctx, models.RoleAdmin); !records.IsStoreError(err) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if got := e.model.Projects(); len(got) != 1 {
		t.Errorf("list changed on failure: %d projects", len(got))
	}
}

func TestCreateProject_NonAdminForbidden(t *testing.T) {
	for _, role := range []string{models.RoleSpecialist, models.RoleClient} {
		t.Run(role, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			p1 := e.seed(t, models.Project{Name: "P1"})
			_, _ = e.model.Load(ctx, role, []models.Project{p1})

			_, err := e.model.CreateProject(ctx, role)
			if !errors.Is(err, authz.ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
			if got := e.model.Projects(); len(got) != 1 || got[0].ID != p1.ID {
				t.Errorf("project list modified: %v", got)
			}
			if n := e.mem.CountCalls(records.OpInsert, records.ProjectsCollection); n != 0 {
				t.Errorf("no insert expected, got %d", n)
			}
		})
	}
}

func TestSubscribe_ReceivesEvents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.seed(t, models.Project{})

	var got []projectstate.EventKind
	unsub := e.model.Subscribe(func(ev projectstate.Event) {
		got = append(got, ev.Kind)
	})

	_, _ = e.model.Load(ctx, models.RoleAdmin, nil)
	_ = e.model.Update(ctx, p.ID, mustEdit(projectstate.TopLevel("progress", 20)))

	want := []projectstate.EventKind{projectstate.Loaded, projectstate.ActiveChanged, projectstate.ProjectUpdated}
	if len(got) != len(want) {
		t.Fatalf("events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %v, want %v", i, got[i], want[i])
		}
	}

	unsub()
	_ = e.model.Update(ctx, p.ID, mustEdit(projectstate.TopLevel("progress", 40)))
	if len(got) != len(want) {
		t.Error("no events after unsubscribe")
	}
}

// slowStore blocks Patch until release is closed.
type slowStore struct {
	*projectstore.Store
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) Patch(ctx context.Context, id primitive.ObjectID, patch records.Record) (time.Time, error) {
	close(s.entered)
	<-s.release
	return s.Store.Patch(ctx, id, patch)
}

func TestClose_DiscardsInFlightResult(t *testing.T) {
	mem := memrecords.New()
	ps := projectstore.New(mem)
	p, _ := ps.Create(context.Background(), models.Project{Name: "Before"})

	slow := &slowStore{Store: ps, entered: make(chan struct{}), release: make(chan struct{})}
	m := projectstate.New(slow, zap.NewNop())
	_, _ = m.Load(context.Background(), models.RoleAdmin, nil)

	done := make(chan error, 1)
	go func() {
		done <- m.Update(context.Background(), p.ID, mustEdit(projectstate.TopLevel("project_name", "After")))
	}()

	<-slow.entered
	m.Close()
	close(slow.release)

	if err := <-done; !errors.Is(err, projectstate.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if local, _ := m.Project(p.ID); local.Name != "Before" {
		t.Errorf("result applied after Close: %q", local.Name)
	}
}

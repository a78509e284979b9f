package usermgmt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/store/records/memrecords"
	"github.com/dalemusser/salesmake/internal/app/system/authz"
	"github.com/dalemusser/salesmake/internal/app/system/mailer"
	"github.com/dalemusser/salesmake/internal/app/system/usermgmt"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"github.com/dalemusser/salesmake/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type captureSender struct {
	sent []mailer.Email
	err  error
}

func (c *captureSender) Send(_ context.Context, e mailer.Email) error {
	c.sent = append(c.sent, e)
	return c.err
}

type env struct {
	fx    *testutil.Fixtures
	mem   *memrecords.Store
	svc   *usermgmt.Service
	mail  *captureSender
	admin models.Profile
	actor usermgmt.Actor
}

func newEnv(t *testing.T) (*env, context.Context) {
	t.Helper()
	fx, mem := testutil.NewMemFixtures(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	mail := &captureSender{}
	svc := usermgmt.New(mem, mail, usermgmt.Options{BaseURL: "https://app.example.com/"}, zap.NewNop())
	admin := fx.CreateProfile(ctx, "Ada Admin", "ada@example.com", models.RoleAdmin)
	return &env{
		fx:    fx,
		mem:   mem,
		svc:   svc,
		mail:  mail,
		admin: admin,
		actor: usermgmt.Actor{ProfileID: admin.ID, Role: models.RoleAdmin},
	}, ctx
}

func TestInvite_Success(t *testing.T) {
	e, ctx := newEnv(t)
	p1 := e.fx.CreateProject(ctx, "Alpha", 0)
	p2 := e.fx.CreateProject(ctx, "Beta", 0)

	p, err := e.svc.Invite(ctx, e.actor, usermgmt.InviteInput{
		Email:      "  New.Client@Example.com ",
		Name:       "New Client",
		Role:       "client",
		ProjectIDs: []primitive.ObjectID{p1.ID, p2.ID, p1.ID},
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if p.Status != models.StatusInvited || p.InvitedAt == nil {
		t.Errorf("profile not invited: %+v", p)
	}
	if p.Email != "new.client@example.com" {
		t.Errorf("email = %q, want normalized", p.Email)
	}

	as, err := e.fx.Assignments.ListByUser(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(as) != 2 {
		t.Errorf("assignments = %d, want 2", len(as))
	}

	if len(e.mail.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(e.mail.sent))
	}
	if e.mail.sent[0].To != "new.client@example.com" {
		t.Errorf("mail to = %q", e.mail.sent[0].To)
	}
}

func TestInvite_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		in      usermgmt.InviteInput
		wantErr error
	}{
		{"non-admin", models.RoleSpecialist, usermgmt.InviteInput{Email: "a@example.com", Name: "A"}, authz.ErrForbidden},
		{"bad email", models.RoleAdmin, usermgmt.InviteInput{Email: "nope", Name: "A"}, usermgmt.ErrInvalidInput},
		{"missing name", models.RoleAdmin, usermgmt.InviteInput{Email: "a@example.com"}, usermgmt.ErrInvalidInput},
		{"admin role", models.RoleAdmin, usermgmt.InviteInput{Email: "a@example.com", Name: "A", Role: "admin"}, usermgmt.ErrInvalidInput},
		{"unknown project", models.RoleAdmin, usermgmt.InviteInput{Email: "a@example.com", Name: "A", ProjectIDs: []primitive.ObjectID{primitive.NewObjectID()}}, usermgmt.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ctx := newEnv(t)
			_, err := e.svc.Invite(ctx, usermgmt.Actor{Role: tt.actor}, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if n := e.mem.CountCalls(records.OpInsert, records.ProfilesCollection); n != 1 {
				t.Errorf("profile inserts = %d, want only the fixture admin", n)
			}
			if len(e.mail.sent) != 0 {
				t.Error("no email should be sent")
			}
		})
	}
}

func TestInvite_DuplicateEmail(t *testing.T) {
	e, ctx := newEnv(t)
	_, err := e.svc.Invite(ctx, e.actor, usermgmt.InviteInput{Email: "ADA@example.com", Name: "Dup"})
	if err == nil {
		t.Fatal("expected duplicate email error")
	}
}

func TestInvite_MailFailureKeepsInvite(t *testing.T) {
	e, ctx := newEnv(t)
	e.mail.err = errors.New("smtp down")
	p, err := e.svc.Invite(ctx, e.actor, usermgmt.InviteInput{Email: "x@example.com", Name: "X"})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if _, err := e.fx.Profiles.GetByID(ctx, p.ID); err != nil {
		t.Errorf("invited profile should exist: %v", err)
	}
}

func TestDelete_RemovesAssignmentsFirst(t *testing.T) {
	e, ctx := newEnv(t)
	c := e.fx.CreateProfile(ctx, "Cal", "cal@example.com", models.RoleClient)
	proj := e.fx.CreateProject(ctx, "Alpha", 0)
	e.fx.Assign(ctx, c, proj)

	e.mem.ResetCalls()
	if err := e.svc.Delete(ctx, e.actor, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var order []string
	for _, call := range e.mem.Calls() {
		if call.Op == records.OpDelete {
			order = append(order, call.Collection)
		}
	}
	if len(order) != 2 || order[0] != records.AssignmentsCollection || order[1] != records.ProfilesCollection {
		t.Errorf("delete order = %v", order)
	}
	if _, err := e.fx.Profiles.GetByID(ctx, c.ID); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("profile still present: %v", err)
	}
}

func TestDelete_Guards(t *testing.T) {
	e, ctx := newEnv(t)
	other := e.fx.CreateProfile(ctx, "Other Admin", "other@example.com", models.RoleAdmin)

	if err := e.svc.Delete(ctx, e.actor, e.admin.ID); !errors.Is(err, usermgmt.ErrSelfDelete) {
		t.Errorf("self delete err = %v, want ErrSelfDelete", err)
	}
	if err := e.svc.Delete(ctx, e.actor, primitive.NewObjectID()); !errors.Is(err, usermgmt.ErrUserNotFound) {
		t.Errorf("missing user err = %v, want ErrUserNotFound", err)
	}
	if err := e.svc.Delete(ctx, usermgmt.Actor{Role: models.RoleClient}, other.ID); !errors.Is(err, authz.ErrForbidden) {
		t.Errorf("client delete err = %v, want ErrForbidden", err)
	}

	// Two active admins: deleting one is allowed, the last is not.
	if err := e.svc.Delete(ctx, e.actor, other.ID); err != nil {
		t.Fatalf("delete other admin: %v", err)
	}
	third := usermgmt.Actor{ProfileID: primitive.NewObjectID(), Role: models.RoleAdmin}
	if err := e.svc.Delete(ctx, third, e.admin.ID); !errors.Is(err, usermgmt.ErrLastAdmin) {
		t.Errorf("last admin err = %v, want ErrLastAdmin", err)
	}
}

func TestToggleAssignment(t *testing.T) {
	e, ctx := newEnv(t)
	c := e.fx.CreateProfile(ctx, "Cal", "cal@example.com", models.RoleClient)
	proj := e.fx.CreateProject(ctx, "Alpha", 0)

	for i, want := range []bool{true, true, false, false} {
		if err := e.svc.ToggleAssignment(ctx, e.actor, c.ID, proj.ID, want); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		got, err := e.fx.Assignments.Exists(ctx, c.ID, proj.ID)
		if err != nil {
			t.Fatalf("Exists: %v", err)
		}
		if got != want {
			t.Errorf("step %d: assigned = %v, want %v", i, got, want)
		}
	}

	if err := e.svc.ToggleAssignment(ctx, e.actor, c.ID, primitive.NewObjectID(), true); !errors.Is(err, usermgmt.ErrInvalidInput) {
		t.Errorf("unknown project err = %v", err)
	}
}

func TestList_FilterAndCounts(t *testing.T) {
	e, ctx := newEnv(t)
	c1 := e.fx.CreateProfile(ctx, "Carla Client", "carla@example.com", models.RoleClient)
	e.fx.CreateProfile(ctx, "Bob Client", "bob@acme.test", models.RoleClient)
	e.fx.CreateProfile(ctx, "Sam Specialist", "sam@example.com", models.RoleSpecialist)
	proj := e.fx.CreateProject(ctx, "Alpha", 0)
	e.fx.Assign(ctx, c1, proj)

	tests := []struct {
		name   string
		filter usermgmt.Filter
		want   []string
	}{
		{"all sorted by name", usermgmt.Filter{}, []string{"Ada Admin", "Bob Client", "Carla Client", "Sam Specialist"}},
		{"clients tab", usermgmt.Filter{Tab: "clients"}, []string{"Bob Client", "Carla Client"}},
		{"specialists tab", usermgmt.Filter{Tab: "specialists"}, []string{"Sam Specialist"}},
		{"search name", usermgmt.Filter{Search: "CARLA"}, []string{"Carla Client"}},
		{"search email", usermgmt.Filter{Search: "acme"}, []string{"Bob Client"}},
		{"tab and search", usermgmt.Filter{Tab: "specialists", Search: "bob"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.svc.List(ctx, e.actor, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got.Users) != len(tt.want) {
				t.Fatalf("users = %d, want %d", len(got.Users), len(tt.want))
			}
			for i, name := range tt.want {
				if got.Users[i].Name != name {
					t.Errorf("users[%d] = %q, want %q", i, got.Users[i].Name, name)
				}
			}
			want := usermgmt.TabCounts{All: 4, Admins: 1, Specialists: 1, Clients: 2}
			if got.Counts != want {
				t.Errorf("counts = %+v, want %+v", got.Counts, want)
			}
		})
	}

	got, err := e.svc.List(ctx, e.actor, usermgmt.Filter{Search: "carla"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got.Users[0].Projects) != 1 || got.Users[0].Projects[0].Name != "Alpha" {
		t.Errorf("projects = %+v", got.Users[0].Projects)
	}
}

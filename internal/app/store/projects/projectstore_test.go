package projectstore_test

import (
	"errors"
	"testing"

	projectstore "github.com/dalemusser/salesmake/internal/app/store/projects"
	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"github.com/dalemusser/salesmake/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateAndGet(t *testing.T) {
	_, mem := testutil.NewMemFixtures(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := projectstore.New(mem)

	p, err := store.Create(ctx, models.Project{
		Name:                 "Alpha",
		Progress:             20,
		ClientInfo:           models.ClientInfo{Company: "Acme"},
		IdealCustomerProfile: models.IdealCustomerProfile{Industry: []string{"SaaS"}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID.IsZero() || p.CreatedAt.IsZero() {
		t.Fatalf("Create = %+v", p)
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Alpha" || got.ClientInfo.Company != "Acme" || len(got.IdealCustomerProfile.Industry) != 1 {
		t.Errorf("GetByID = %+v", got)
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("missing GetByID err = %v, want ErrNotFound", err)
	}
}

func TestListByIDsAndCount(t *testing.T) {
	fx, mem := testutil.NewMemFixtures(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := projectstore.New(mem)

	a := fx.CreateProject(ctx, "A", 0)
	fx.CreateProject(ctx, "B", 0)
	c := fx.CreateProject(ctx, "C", 0)

	got, err := store.ListByIDs(ctx, []primitive.ObjectID{c.ID, a.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != c.ID {
		t.Errorf("ListByIDs = %+v, want [A C]", got)
	}

	n, err := store.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestPatchAndNestedField(t *testing.T) {
	fx, mem := testutil.NewMemFixtures(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := projectstore.New(mem)

	p := fx.CreateProject(ctx, "Alpha", 0)

	if _, err := store.Patch(ctx, p.ID, records.Record{
		"client_info": records.Record{"name": "Nia", "email": "nia@acme.com", "company": "Acme"},
	}); err != nil {
		t.Fatalf("Patch: %v", err)
	}

	nested, err := store.NestedField(ctx, p.ID, "client_info")
	if err != nil {
		t.Fatalf("NestedField: %v", err)
	}
	if nested["company"] != "Acme" || nested["name"] != "Nia" {
		t.Errorf("client_info = %v", nested)
	}

	empty, err := store.NestedField(ctx, p.ID, "not_there")
	if err != nil || len(empty) != 0 {
		t.Errorf("missing nested field = %v, %v; want empty record", empty, err)
	}

	got, _ := store.GetByID(ctx, p.ID)
	if !got.UpdatedAt.After(p.UpdatedAt) && !got.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v < %v", got.UpdatedAt, p.UpdatedAt)
	}
}

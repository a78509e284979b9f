package assignmentstore_test

import (
	"testing"

	assignmentstore "github.com/dalemusser/salesmake/internal/app/store/assignments"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"github.com/dalemusser/salesmake/internal/testutil"
)

func TestAssign_IsIdempotent(t *testing.T) {
	fx, mem := testutil.NewMemFixtures(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := assignmentstore.New(mem)

	u := fx.CreateProfile(ctx, "Cal", "cal@example.com", models.RoleClient)
	p := fx.CreateProject(ctx, "Alpha", 0)

	a, created, err := store.Assign(ctx, u.ID, p.ID)
	if err != nil || !created || a.ID.IsZero() {
		t.Fatalf("first Assign = %+v, %v, %v", a, created, err)
	}
	_, created, err = store.Assign(ctx, u.ID, p.ID)
	if err != nil || created {
		t.Fatalf("second Assign created=%v err=%v, want existing link", created, err)
	}

	list, err := store.ListByUser(ctx, u.ID)
	if err != nil || len(list) != 1 {
		t.Errorf("ListByUser = %+v, %v", list, err)
	}
}

func TestUnassignAndDeleteByUser(t *testing.T) {
	fx, mem := testutil.NewMemFixtures(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := assignmentstore.New(mem)

	u := fx.CreateProfile(ctx, "Cal", "cal@example.com", models.RoleClient)
	other := fx.CreateProfile(ctx, "Sam", "sam@example.com", models.RoleSpecialist)
	p1 := fx.CreateProject(ctx, "One", 0)
	p2 := fx.CreateProject(ctx, "Two", 0)
	fx.Assign(ctx, u, p1)
	fx.Assign(ctx, u, p2)
	fx.Assign(ctx, other, p1)

	n, err := store.Unassign(ctx, u.ID, p1.ID)
	if err != nil || n != 1 {
		t.Fatalf("Unassign = %d, %v", n, err)
	}
	if ok, _ := store.Exists(ctx, u.ID, p1.ID); ok {
		t.Error("link still present after Unassign")
	}
	if ok, _ := store.Exists(ctx, other.ID, p1.ID); !ok {
		t.Error("Unassign removed another user's link")
	}

	n, err = store.DeleteByUser(ctx, u.ID)
	if err != nil || n != 1 {
		t.Fatalf("DeleteByUser = %d, %v", n, err)
	}
	all, err := store.List(ctx)
	if err != nil || len(all) != 1 || all[0].UserID != other.ID {
		t.Errorf("List = %+v, %v", all, err)
	}
}

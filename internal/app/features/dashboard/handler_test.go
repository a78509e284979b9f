package dashboard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/salesmake/internal/app/features/dashboard"
	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
	"github.com/dalemusser/salesmake/internal/app/system/auth"
	"github.com/dalemusser/salesmake/internal/app/system/chat"
	dashsvc "github.com/dalemusser/salesmake/internal/app/system/dashboard"
	"github.com/dalemusser/salesmake/internal/app/system/progress"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"github.com/dalemusser/salesmake/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const password = "password123"

type env struct {
	router chi.Router
	reg    *dashsvc.Registry
	fx     *testutil.Fixtures
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zap.NewNop()
	fx, mem := testutil.NewMemFixtures(t)
	reg := dashsvc.NewRegistry(dashsvc.Deps{Store: mem, Directory: fx.Directory, Logger: logger})
	h := dashboard.NewHandler(reg, uierrors.NewErrorLogger(logger), logger)
	return &env{router: dashboard.Routes(h), reg: reg, fx: fx}
}

// signIn returns a viewer for a fresh session of email.
func (e *env) signIn(t *testing.T, email string) *auth.Viewer {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	token, _, err := e.reg.SignIn(ctx, email, password)
	if err != nil {
		t.Fatalf("SignIn(%s): %v", email, err)
	}
	v, ok := e.reg.Lookup(token)
	if !ok {
		t.Fatal("Lookup failed")
	}
	return v
}

func (e *env) do(v *auth.Viewer, method, target string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(method, target, body)
	if v != nil {
		req = testutil.WithViewer(req, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestServeDashboard_Unauthenticated(t *testing.T) {
	e := newEnv(t)
	rec := e.do(nil, http.MethodGet, "/", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestServeDashboard_StaleToken(t *testing.T) {
	e := newEnv(t)
	rec := e.do(&auth.Viewer{Token: "gone", Role: "client"}, http.MethodGet, "/", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestServeDashboard_View(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	prof, _ := e.fx.CreateLinkedProfile(ctx, "Cal", "cal@example.com", password, models.RoleClient)
	proj := e.fx.CreateProject(ctx, "Alpha", 20)
	e.fx.Assign(ctx, prof, proj)

	v := e.signIn(t, "cal@example.com")
	rec := e.do(v, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Projects        []models.Project `json:"projects"`
		ActiveProjectID string           `json:"active_project_id"`
		Steps           *progress.View   `json:"steps"`
		Messages        []chat.Message   `json:"messages"`
	}
	if err := testutil.DecodeJSON(rec, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Projects) != 1 || body.ActiveProjectID != proj.ID.Hex() {
		t.Errorf("projects/active = %d/%s", len(body.Projects), body.ActiveProjectID)
	}
	if body.Steps == nil || body.Steps.Progress != 20 {
		t.Errorf("steps = %+v", body.Steps)
	}
	// welcome + the 20% notification
	if len(body.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(body.Messages))
	}
}

func TestHandleUpdateField(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	prof, _ := e.fx.CreateLinkedProfile(ctx, "Cal", "cal@example.com", password, models.RoleClient)
	proj := e.fx.CreateProject(ctx, "Alpha", 0)
	e.fx.Assign(ctx, prof, proj)
	v := e.signIn(t, "cal@example.com")
	base := "/projects/" + proj.ID.Hex()

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"top-level text", map[string]any{"field": "project_name", "value": "Renamed"}, http.StatusOK},
		{"count from string", map[string]any{"field": "emails_sent", "value": "42"}, http.StatusOK},
		{"nested", map[string]any{"field": "client_info.email", "value": "c@acme.test"}, http.StatusOK},
		{"unknown field", map[string]any{"field": "owner", "value": "x"}, http.StatusBadRequest},
		{"unknown child", map[string]any{"field": "client_info.phone", "value": "x"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(v, http.MethodPatch, base, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	stored, err := e.fx.Projects.GetByID(ctx, proj.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Name != "Renamed" || stored.EmailsSent != 42 || stored.ClientInfo.Email != "c@acme.test" {
		t.Errorf("stored = %+v", stored)
	}

	rec := e.do(v, http.MethodPatch, "/projects/not-an-id", map[string]any{"field": "project_name", "value": "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("bad id status = %d, want 404", rec.Code)
	}
}

func TestICPItems(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	prof, _ := e.fx.CreateLinkedProfile(ctx, "Cal", "cal@example.com", password, models.RoleClient)
	proj := e.fx.CreateProject(ctx, "Alpha", 0)
	e.fx.Assign(ctx, prof, proj)
	v := e.signIn(t, "cal@example.com")
	base := "/projects/" + proj.ID.Hex() + "/icp/job_titles"

	if rec := e.do(v, http.MethodPost, base, map[string]string{"item": "CTO"}); rec.Code != http.StatusOK {
		t.Fatalf("add status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := e.do(v, http.MethodPost, base, map[string]string{"item": "VP Sales"}); rec.Code != http.StatusOK {
		t.Fatalf("add status = %d", rec.Code)
	}
	if rec := e.do(v, http.MethodPut, base+"/0", map[string]string{"item": "CEO"}); rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d", rec.Code)
	}
	if rec := e.do(v, http.MethodDelete, base+"/1", nil); rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}
	if rec := e.do(v, http.MethodPost, base, map[string]string{"item": "   "}); rec.Code != http.StatusBadRequest {
		t.Errorf("blank item status = %d, want 400", rec.Code)
	}
	if rec := e.do(v, http.MethodDelete, base+"/9", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("out of range status = %d, want 400", rec.Code)
	}
	if rec := e.do(v, http.MethodDelete, base+"/x", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad index status = %d, want 400", rec.Code)
	}

	stored, err := e.fx.Projects.GetByID(ctx, proj.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	got := stored.IdealCustomerProfile.JobTitles
	if len(got) != 1 || got[0] != "CEO" {
		t.Errorf("job_titles = %v, want [CEO]", got)
	}
}

func TestStepsFlow(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	prof, _ := e.fx.CreateLinkedProfile(ctx, "Sam", "sam@example.com", password, models.RoleSpecialist)
	proj := e.fx.CreateProject(ctx, "Alpha", 0)
	e.fx.Assign(ctx, prof, proj)
	v := e.signIn(t, "sam@example.com")
	base := "/projects/" + proj.ID.Hex()

	rec := e.do(v, http.MethodPost, base+"/steps/onboarding/link", map[string]string{"link": "https://docs.example.com/onboard"})
	if rec.Code != http.StatusOK {
		t.Fatalf("link status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var view progress.View
	if err := testutil.DecodeJSON(rec, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Progress != 20 || view.Completed != 1 {
		t.Errorf("view = progress %d completed %d", view.Progress, view.Completed)
	}

	rec = e.do(v, http.MethodPost, base+"/steps/nope/link", map[string]string{"link": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown step status = %d, want 400", rec.Code)
	}

	rec = e.do(v, http.MethodPost, base+"/steps/mailboxes/link", map[string]string{"link": "warmup sheet"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-URL link status = %d, want 400", rec.Code)
	}

	rec = e.do(v, http.MethodPut, base+"/campaigns-live", map[string]bool{"live": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("campaigns live status = %d", rec.Code)
	}
	if err := testutil.DecodeJSON(rec, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Progress != 100 || !view.Confirmed {
		t.Errorf("view after live = %+v", view)
	}

	rec = e.do(v, http.MethodGet, base+"/steps", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("steps status = %d", rec.Code)
	}
}

func TestCreateProjectAndSetActive(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fx.CreateLinkedProfile(ctx, "Ada", "ada@example.com", password, models.RoleAdmin)
	e.fx.CreateLinkedProfile(ctx, "Cal", "cal@example.com", password, models.RoleClient)
	first := e.fx.CreateProject(ctx, "Alpha", 0)

	admin := e.signIn(t, "ada@example.com")
	rec := e.do(admin, http.MethodPost, "/projects", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created models.Project
	if err := testutil.DecodeJSON(rec, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Name != "New Project 2" {
		t.Errorf("name = %q", created.Name)
	}

	rec = e.do(admin, http.MethodPut, "/active", map[string]string{"project_id": first.ID.Hex()})
	if rec.Code != http.StatusOK {
		t.Fatalf("set active status = %d", rec.Code)
	}
	var view struct {
		ActiveProjectID string `json:"active_project_id"`
	}
	if err := testutil.DecodeJSON(rec, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ActiveProjectID != first.ID.Hex() {
		t.Errorf("active = %s, want %s", view.ActiveProjectID, first.ID.Hex())
	}

	rec = e.do(admin, http.MethodPut, "/active", map[string]string{"project_id": "000000000000000000000000"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown active status = %d, want 404", rec.Code)
	}

	client := e.signIn(t, "cal@example.com")
	rec = e.do(client, http.MethodPost, "/projects", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("client create status = %d, want 403", rec.Code)
	}
}

func TestChat(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fx.CreateLinkedProfile(ctx, "Cal", "cal@example.com", password, models.RoleClient)
	v := e.signIn(t, "cal@example.com")

	rec := e.do(v, http.MethodPost, "/chat", map[string]string{"text": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := testutil.DecodeJSON(rec, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Messages) != 3 || body.Messages[2].Text != chat.ReplyMessage {
		t.Errorf("messages = %+v", body.Messages)
	}

	rec = e.do(v, http.MethodPost, "/chat", map[string]string{"text": "  "})
	if err := testutil.DecodeJSON(rec, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Messages) != 3 {
		t.Errorf("blank message changed log: %d", len(body.Messages))
	}
}

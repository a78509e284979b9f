// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"

	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
	"github.com/dalemusser/salesmake/internal/app/system/auth"
	"github.com/dalemusser/salesmake/internal/app/system/chat"
	dashsvc "github.com/dalemusser/salesmake/internal/app/system/dashboard"
	"github.com/dalemusser/salesmake/internal/app/system/identity"
	"github.com/dalemusser/salesmake/internal/app/system/progress"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Registry *dashsvc.Registry
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(reg *dashsvc.Registry, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Registry: reg,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// dashboardView is the whole dashboard as one document.
type dashboardView struct {
	Profile         models.Profile   `json:"profile"`
	Projects        []models.Project `json:"projects"`
	ActiveProjectID string           `json:"active_project_id,omitempty"`
	Steps           *progress.View   `json:"steps,omitempty"`
	Messages        []chat.Message   `json:"messages"`
}

// session returns the viewer's dashboard session, writing 401 when there
// is none.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*dashsvc.Session, bool) {
	v, ok := auth.CurrentViewer(r)
	if !ok {
		h.ErrLog.Write(w, r, "dashboard: no viewer", &identity.AuthError{Op: "dashboard", Err: identity.ErrNoSession})
		return nil, false
	}
	s, ok := h.Registry.Get(r.Context(), v.Token)
	if !ok {
		h.ErrLog.Write(w, r, "dashboard: session ended", &identity.AuthError{Op: "dashboard", Err: identity.ErrNoSession})
		return nil, false
	}
	return s, true
}

// projectID parses the {id} URL parameter, writing 404 when it is not an
// ObjectID.
func projectID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.WriteError(w, http.StatusNotFound, uierrors.MsgNotFound)
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeDashboard handles GET /dashboard.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeView(w, r, s)
}

func (h *Handler) writeView(w http.ResponseWriter, r *http.Request, s *dashsvc.Session) {
	p, err := s.Profile()
	if err != nil {
		h.ErrLog.Write(w, r, "dashboard: profile", err)
		return
	}

	view := dashboardView{
		Profile:  p,
		Projects: s.Projects(),
		Messages: s.Chat().Messages(),
	}
	if active, ok := s.Active(); ok {
		view.ActiveProjectID = active.ID.Hex()
		if sv, err := s.StepView(active.ID); err == nil {
			view.Steps = &sv
		}
	}
	uierrors.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) writeProject(w http.ResponseWriter, r *http.Request, s *dashsvc.Session, id primitive.ObjectID) {
	p, ok := s.Project(id)
	if !ok {
		uierrors.WriteError(w, http.StatusNotFound, uierrors.MsgNotFound)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, p)
}

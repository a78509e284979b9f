// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/salesmake/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the dashboard API under whatever mount point the top-level
// router chooses (e.g., "/dashboard"). Every route needs a signed-in viewer.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeDashboard)
	r.Post("/reload", h.HandleReload)
	r.Put("/active", h.HandleSetActive)

	r.Post("/projects", h.HandleCreateProject)
	r.Route("/projects/{id}", func(pr chi.Router) {
		pr.Patch("/", h.HandleUpdateField)
		pr.Post("/icp/{section}", h.HandleAddICPItem)
		pr.Put("/icp/{section}/{index}", h.HandleEditICPItem)
		pr.Delete("/icp/{section}/{index}", h.HandleRemoveICPItem)
		pr.Get("/steps", h.ServeSteps)
		pr.Post("/steps/{key}/link", h.HandleAttachLink)
		pr.Put("/campaigns-live", h.HandleCampaignsLive)
	})

	r.Get("/chat", h.ServeChat)
	r.Post("/chat", h.HandleChat)
	return r
}

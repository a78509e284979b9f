// internal/app/features/systemusers/routes.go
package systemusers

import (
	"github.com/dalemusser/salesmake/internal/app/system/auth"
	"github.com/dalemusser/salesmake/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves the admin user API; mounted under /users.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleInvite)
	r.Delete("/{id}", h.HandleDelete)
	r.Put("/{id}/projects/{projectID}", h.HandleAssignment)
	return r
}

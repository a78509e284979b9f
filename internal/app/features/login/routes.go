// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves sign-in, sign-up and the CSRF token; mounted under /auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/csrf", h.ServeCSRF)
	r.Post("/signin", h.HandleSignIn)
	r.Post("/signup", h.HandleSignUp)
	return r
}

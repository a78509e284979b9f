// internal/app/features/login/csrf.go
package login

import (
	"net/http"

	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
	"github.com/gorilla/csrf"
)

// ServeCSRF handles GET /auth/csrf. Clients echo the token in the
// X-CSRF-Token header on every mutating request.
func (h *Handler) ServeCSRF(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.Token(r)})
}

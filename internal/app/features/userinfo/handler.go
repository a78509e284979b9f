// internal/app/features/userinfo/handler.go
package userinfo

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/salesmake/internal/app/system/auth"
)

// Handler serves the signed-in viewer's identity.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// ServeUserInfo handles GET /userinfo.
//
// Response format:
//
//	{ "isAuthenticated": bool, "profile_id": "...", "name": "...", "email": "...", "role": "..." }
//
// Unauthenticated callers get isAuthenticated=false and empty strings, never
// an error status.
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	v, ok := auth.CurrentViewer(r)
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"isAuthenticated": false,
			"profile_id":      "",
			"name":            "",
			"email":           "",
			"role":            "",
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"isAuthenticated": true,
		"profile_id":      v.ProfileID,
		"name":            v.Name,
		"email":           v.Email,
		"role":            v.Role,
	})
}

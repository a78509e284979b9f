// internal/app/features/dashboard/chat.go
package dashboard

import (
	"net/http"

	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
)

type chatRequest struct {
	Text string `json:"text"`
}

// ServeChat handles GET /dashboard/chat.
func (h *Handler) ServeChat(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"messages": s.Chat().Messages()})
}

// HandleChat handles POST /dashboard/chat. Blank messages are ignored and
// the unchanged log is returned.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "chat: decode", err)
		return
	}
	s.Chat().Send(req.Text)
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"messages": s.Chat().Messages()})
}

// internal/app/features/systemusers/list.go
package systemusers

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
	"github.com/dalemusser/salesmake/internal/app/system/paging"
	"github.com/dalemusser/salesmake/internal/app/system/timeouts"
	"github.com/dalemusser/salesmake/internal/app/system/usermgmt"
)

type listPage struct {
	usermgmt.Listing
	Page paging.Info `json:"page"`
}

// ServeList handles GET /users?tab=clients&q=acme&start=51.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	listing, err := h.Users.List(ctx, actor(r), usermgmt.Filter{
		Tab:    r.URL.Query().Get("tab"),
		Search: r.URL.Query().Get("q"),
	})
	if err != nil {
		h.ErrLog.Write(w, r, "list users", err)
		return
	}
	rows, info := paging.Slice(listing.Users, paging.ParseStart(r), paging.PageSize)
	listing.Users = rows
	uierrors.WriteJSON(w, http.StatusOK, listPage{Listing: listing, Page: info})
}

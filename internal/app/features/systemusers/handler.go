// internal/app/features/systemusers/handler.go
package systemusers

import (
	"net/http"

	uierrors "github.com/dalemusser/salesmake/internal/app/features/errors"
	"github.com/dalemusser/salesmake/internal/app/system/auth"
	"github.com/dalemusser/salesmake/internal/app/system/usermgmt"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the admin user-management API.
type Handler struct {
	Users  *usermgmt.Service
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(users *usermgmt.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:  users,
		ErrLog: errLog,
		Log:    logger,
	}
}

// actor builds the acting admin from the viewer. RequireRole has already
// rejected requests without one.
func actor(r *http.Request) usermgmt.Actor {
	v, ok := auth.CurrentViewer(r)
	if !ok {
		return usermgmt.Actor{}
	}
	id, _ := primitive.ObjectIDFromHex(v.ProfileID)
	return usermgmt.Actor{ProfileID: id, Role: v.Role}
}

// internal/app/features/errors/errors.go
package errors

import (
	stderrors "errors"
	"net/http"

	profilestore "github.com/dalemusser/salesmake/internal/app/store/profiles"
	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/system/authz"
	"github.com/dalemusser/salesmake/internal/app/system/identity"
	"github.com/dalemusser/salesmake/internal/app/system/progress"
	"github.com/dalemusser/salesmake/internal/app/system/projectstate"
	"github.com/dalemusser/salesmake/internal/app/system/resolver"
	"github.com/dalemusser/salesmake/internal/app/system/usermgmt"
	"go.uber.org/zap"
)

// Messages shown for errors whose own text is not meant for users.
const (
	MsgUnavailable  = "The service is temporarily unavailable. Please try again."
	MsgSignIn       = "Please sign in to continue."
	MsgCredentials  = "Invalid email or password."
	MsgForbidden    = "You don't have permission to do that."
	MsgInternal     = "Something went wrong. Please try again."
	MsgNotFound     = "Not found."
	MsgEmailInUse   = "An account with that email already exists."
	MsgSessionEnded = "Your session has ended. Please sign in again."
)

// ErrBadRequest marks a malformed request body or parameter.
var ErrBadRequest = stderrors.New("bad request")

// Status maps err to an HTTP status and a message safe to show the user.
// Store failures are checked first: an auth or resolve error that wraps one
// is still a transient backend failure.
func Status(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case records.IsStoreError(err):
		return http.StatusServiceUnavailable, MsgUnavailable
	case stderrors.Is(err, resolver.ErrProfileNotFound):
		return http.StatusNotFound, resolver.NotFoundMessage
	case stderrors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, MsgCredentials
	case stderrors.Is(err, identity.ErrEmailTaken), stderrors.Is(err, profilestore.ErrDuplicateEmail):
		return http.StatusConflict, MsgEmailInUse
	case stderrors.Is(err, identity.ErrWeakPassword):
		return http.StatusBadRequest, identity.ErrWeakPassword.Error()
	case stderrors.Is(err, identity.ErrInvalidEmail):
		return http.StatusBadRequest, identity.ErrInvalidEmail.Error()
	case identity.IsAuthError(err), stderrors.Is(err, projectstate.ErrClosed):
		return http.StatusUnauthorized, MsgSignIn
	case stderrors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden, MsgForbidden
	case stderrors.Is(err, projectstate.ErrInvalidEdit),
		stderrors.Is(err, progress.ErrUnknownStep),
		stderrors.Is(err, progress.ErrInvalidLink),
		stderrors.Is(err, usermgmt.ErrInvalidInput),
		stderrors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case stderrors.Is(err, projectstate.ErrUnknownProject),
		stderrors.Is(err, usermgmt.ErrUserNotFound),
		stderrors.Is(err, records.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	case stderrors.Is(err, usermgmt.ErrSelfDelete), stderrors.Is(err, usermgmt.ErrLastAdmin):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, MsgInternal
}

// ErrorLogger writes error responses and logs the ones that matter.
type ErrorLogger struct {
	Log *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// Write maps err with Status and writes it as a JSON error. Server-side
// failures are logged at error level with the request path.
func (l *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := Status(err)
	if status >= http.StatusInternalServerError {
		l.Log.Error(op,
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status))
	} else {
		l.Log.Debug(op,
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.Int("status", status))
	}
	WriteError(w, status, msg)
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, MsgNotFound)
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}

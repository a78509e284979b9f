// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	dashboardfeature "github.com/dalemusser/salesmake/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/salesmake/internal/app/features/errors"
	healthfeature "github.com/dalemusser/salesmake/internal/app/features/health"
	loginfeature "github.com/dalemusser/salesmake/internal/app/features/login"
	logoutfeature "github.com/dalemusser/salesmake/internal/app/features/logout"
	systemusersfeature "github.com/dalemusser/salesmake/internal/app/features/systemusers"
	userinfofeature "github.com/dalemusser/salesmake/internal/app/features/userinfo"
	"github.com/dalemusser/salesmake/internal/app/system/auth"
	"github.com/dalemusser/salesmake/internal/app/system/mailer"
	"github.com/dalemusser/salesmake/internal/app/system/usermgmt"
	"github.com/dalemusser/salesmake/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. SalesMake serves a JSON API: sign-in and
// sign-up under /auth, the per-viewer dashboard under /dashboard and admin
// user management under /users.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	return buildRouter(coreCfg.Env == "prod", appCfg, deps, logger)
}

func buildRouter(secure bool, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (chi.Router, error) {
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	errLog := errorsfeature.NewErrorLogger(logger)
	users := usermgmt.New(deps.Records,
		mailer.NewLogSender(appCfg.MailFrom, appCfg.MailFromName, logger),
		usermgmt.Options{SiteName: appCfg.MailFromName, BaseURL: appCfg.BaseURL},
		logger)

	r := chi.NewRouter()
	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Health sits outside CSRF and session handling.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Sessions.Len, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Group(func(r chi.Router) {
		if !secure {
			r.Use(plaintext)
		}
		r.Use(csrf.Protect([]byte(appCfg.CSRFKey),
			csrf.Secure(secure),
			csrf.Path("/"),
			csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
		))

		// Resolves the cookie token into the viewer for every request.
		r.Use(sessionMgr.LoadViewer(deps.Sessions.Lookup))

		loginHandler := loginfeature.NewHandler(deps.Sessions, sessionMgr, errLog, logger)
		deps.Sweeper.Add(workers.Task{Name: "auth-rate-limits", Run: func(context.Context) int {
			return loginHandler.Limiter.Prune()
		}})
		r.Mount("/auth", loginfeature.Routes(loginHandler))

		logoutHandler := logoutfeature.NewHandler(deps.Sessions, sessionMgr, logger)
		r.Mount("/logout", logoutfeature.Routes(logoutHandler))

		r.Mount("/userinfo", userinfofeature.Routes(userinfofeature.NewHandler()))

		dashboardHandler := dashboardfeature.NewHandler(deps.Sessions, errLog, logger)
		r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler))

		usersHandler := systemusersfeature.NewHandler(users, errLog, logger)
		r.Mount("/users", systemusersfeature.Routes(usersHandler))
	})

	return r, nil
}

// plaintext marks requests as plain HTTP so gorilla/csrf skips its
// HTTPS-only Referer checks in development.
func plaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	errorsfeature.WriteError(w, http.StatusForbidden, "invalid or missing CSRF token")
}

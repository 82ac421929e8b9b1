// Package httpapi is the HTTP transport of the session service.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
)

// SessionManager is the session service as seen by the transport.
type SessionManager interface {
	Register(ctx context.Context, email, password string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Validate(ctx context.Context, accessToken string) (*services.ValidateResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*services.AccountSummary, error)
	ListAccounts(ctx context.Context) ([]services.AccountDetails, error)
	DeleteAccount(ctx context.Context, id string) error
}

// ReadinessFunc reports whether storage is usable.
type ReadinessFunc func(ctx context.Context) error

type RouterConfig struct {
	RefreshTTL   time.Duration
	SecureCookie bool
}

func NewRouter(svc SessionManager, ready ReadinessFunc, log logging.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(Recovery(log))
	r.Use(RequestLogging(log))
	r.Use(Metrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, http.StatusNotFound, codeNotFound, "Route not found")
	})

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			log.Warn(r.Context(), "not ready", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(svc, log, cfg.RefreshTTL, cfg.SecureCookie)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/validate", authHandler.Validate)

		r.With(RequireAccessToken(svc)).Post("/logout", authHandler.Logout)
	})

	usersHandler := NewUsersHandler(svc)
	r.Route("/api/users", func(r chi.Router) {
		r.Use(RequireAccessToken(svc))

		r.Get("/", usersHandler.List)
		r.Delete("/{id}", usersHandler.Delete)
	})

	return r
}

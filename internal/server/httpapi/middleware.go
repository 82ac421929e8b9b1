package httpapi

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
)

type ctxKey struct{}

// AccountFrom returns the account authenticated by RequireAccessToken.
func AccountFrom(ctx context.Context) (*services.AccountSummary, bool) {
	a, ok := ctx.Value(ctxKey{}).(*services.AccountSummary)
	return a, ok
}

// RequireAccessToken rejects requests without a valid Bearer access token.
func RequireAccessToken(svc SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeErrorCode(w, http.StatusUnauthorized, codeAuthentication, "Authorization header missing")
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeErrorCode(w, http.StatusUnauthorized, codeAuthentication, "Authorization header missing or malformed")
				return
			}

			account, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, err, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, account)))
		})
	}
}

// Recovery turns a handler panic into a 500 response.
func Recovery(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error(r.Context(), "panic recovered",
						"panic", rec,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)
					writeErrorCode(w, http.StatusInternalServerError, codeServer, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogging logs one line per request.
func RequestLogging(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

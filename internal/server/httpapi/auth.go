package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

const maxBodyBytes = 1 << 20

// AuthHandler serves the /api/auth endpoints.
type AuthHandler struct {
	svc          SessionManager
	log          logging.Logger
	refreshTTL   time.Duration
	secureCookie bool
}

func NewAuthHandler(svc SessionManager, log logging.Logger, refreshTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, log: log, refreshTTL: refreshTTL, secureCookie: secureCookie}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User        accountBody `json:"user"`
	AccessToken string      `json:"accessToken"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type validateRequest struct {
	Token string `json:"token"`
}

type tokenInfo struct {
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type validateResponse struct {
	Valid     bool        `json:"valid"`
	User      accountBody `json:"user"`
	TokenInfo tokenInfo   `json:"tokenInfo"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorCode(w, http.StatusBadRequest, codeValidation, "Invalid request body")
		return false
	}
	return true
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		recordAuthEvent("register", writeError(w, err, http.StatusNotFound))
		return
	}

	setRefreshCookie(w, res.RefreshToken, h.refreshTTL, h.secureCookie)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:        accountBody{ID: res.Account.ID, Email: res.Account.Email},
		AccessToken: res.AccessToken,
	})
	recordAuthEvent("register", resultOK)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		recordAuthEvent("login", writeError(w, err, http.StatusBadRequest))
		return
	}

	setRefreshCookie(w, res.RefreshToken, h.refreshTTL, h.secureCookie)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:        accountBody{ID: res.Account.ID, Email: res.Account.Email},
		AccessToken: res.AccessToken,
	})
	recordAuthEvent("login", resultOK)
}

// Refresh handles POST /api/auth/refresh. The refresh token comes from the cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	access, err := h.svc.Refresh(r.Context(), refreshTokenFrom(r))
	if err != nil {
		recordAuthEvent("refresh", writeError(w, err, http.StatusNotFound))
		return
	}

	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: access})
	recordAuthEvent("refresh", resultOK)
}

// Validate handles POST /api/auth/validate
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.Validate(r.Context(), req.Token)
	if err != nil {
		recordAuthEvent("validate", writeError(w, err, http.StatusNotFound))
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Valid: res.Valid,
		User:  accountBody{ID: res.Account.ID, Email: res.Account.Email},
		TokenInfo: tokenInfo{
			IssuedAt:  res.IssuedAt.UTC(),
			ExpiresAt: res.ExpiresAt.UTC(),
		},
	})
	recordAuthEvent("validate", resultOK)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), refreshTokenFrom(r)); err != nil {
		recordAuthEvent("logout", writeError(w, err, http.StatusNotFound))
		return
	}

	clearRefreshCookie(w, h.secureCookie)
	w.WriteHeader(http.StatusNoContent)
	recordAuthEvent("logout", resultOK)

	if a, ok := AccountFrom(r.Context()); ok {
		h.log.Info(r.Context(), "logged out", "account_id", a.ID)
	}
}

package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

func refreshCookie(value string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func setRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, refreshCookie(token, ttl, secure))
}

func clearRefreshCookie(w http.ResponseWriter, secure bool) {
	c := refreshCookie("", 0, secure)
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func refreshTokenFrom(r *http.Request) string {
	c, err := r.Cookie(common.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

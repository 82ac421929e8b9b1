package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

const (
	codeValidation     = "ValidationError"
	codeAlreadyExists  = "AlreadyExists"
	codeNotFound       = "NotFound"
	codeAuthentication = "AuthenticationError"
	codeUnauthorized   = "Unauthorized"
	codeServer         = "ServerError"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type accountBody struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type userBody struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// classify maps a service error to its HTTP status and error code.
// notFoundStatus is the status used for common.ErrorNotFound, which
// differs between login and the rest of the API.
func classify(err error, notFoundStatus int) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, codeAlreadyExists
	case errors.Is(err, common.ErrorNotFound):
		return notFoundStatus, codeNotFound
	case errors.Is(err, common.ErrorAuthentication):
		return http.StatusUnauthorized, codeAuthentication
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, codeUnauthorized
	default:
		return http.StatusInternalServerError, codeServer
	}
}

func writeError(w http.ResponseWriter, err error, notFoundStatus int) string {
	status, code := classify(err, notFoundStatus)

	msg := common.MessageOf(err)
	switch code {
	case codeServer:
		msg = "Internal server error"
	case codeUnauthorized:
		msg = "Unauthorized"
	}

	writeErrorCode(w, status, code, msg)
	return code
}

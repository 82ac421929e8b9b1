package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type UsersHandler struct {
	svc SessionManager
}

func NewUsersHandler(svc SessionManager) *UsersHandler {
	return &UsersHandler{svc: svc}
}

// List handles GET /api/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAccounts(r.Context())
	if err != nil {
		writeError(w, err, http.StatusNotFound)
		return
	}

	out := make([]userBody, 0, len(list))
	for _, a := range list {
		out = append(out, userBody{
			ID:        a.ID,
			Email:     a.Email,
			CreatedAt: a.CreatedAt.UTC(),
			UpdatedAt: a.UpdatedAt.UTC(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /api/users/{id}
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"github.com/petermazzocco/go-catalog-api/internal/catalog"
)

func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req catalog.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user":  catalog.SessionUser{ID: a.ID, Email: a.Email, Role: a.Role},
	})
}

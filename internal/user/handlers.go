package user

import (
	"encoding/json"
	"net/http"

	"github.com/antonminaichev/gomarket/internal/types/user"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req user.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.svc.Register(r.Context(), req.Login, req.Password); err != nil {
		code := http.StatusInternalServerError
		switch err {
		case ErrPasswordTooShort:
			code = http.StatusBadRequest
		case ErrUserExists:
			code = http.StatusConflict
		}
		http.Error(w, err.Error(), code)
		return
	}

	token, err := h.svc.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		http.Error(w, "authentication after registration failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req user.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	token, err := h.svc.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	w.Header().Set("Authorization", "Bearer "+token)
}

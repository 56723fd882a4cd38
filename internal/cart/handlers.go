package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/antonminaichev/gomarket/internal/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetCart)
	r.Put("/items", h.SetItem)
	r.Delete("/", h.ClearCart)
	return r
}

type setItemReq struct {
	ProductTypeID int64       `json:"product_type_id"`
	Quantity      json.Number `json:"quantity"`
}

func (h *Handler) SetItem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req setItemReq
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	// Reject fractional quantities instead of truncating them.
	quantity, err := strconv.Atoi(req.Quantity.String())
	if err != nil {
		http.Error(w, ErrInvalidQuantity.Error(), http.StatusBadRequest)
		return
	}

	err = h.svc.SetItem(r.Context(), userID, req.ProductTypeID, quantity)
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrCartNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	c, err := h.svc.Cart(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.svc.Clear(r.Context(), userID); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

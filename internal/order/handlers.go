package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/antonminaichev/gomarket/internal/middleware"
	"github.com/antonminaichev/gomarket/internal/types/order"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type orderView struct {
	*order.Order
	Status order.OrderStatus `json:"status"`
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	o, err := h.svc.Order(r.Context(), id, userID)
	switch {
	case errors.Is(err, ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNotOrderOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(orderView{Order: o, Status: o.Status()})
	}
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	orders, err := h.svc.ListOrders(r.Context(), userID)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, orderView{Order: &orders[i], Status: orders[i].Status()})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

func (h *Handler) MarkShipped(w http.ResponseWriter, r *http.Request) {
	sellerID := middleware.UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err = h.svc.MarkShipped(r.Context(), id, sellerID)
	switch {
	case errors.Is(err, ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNotItemSeller):
		http.Error(w, err.Error(), http.StatusForbidden)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

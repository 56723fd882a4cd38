package purchase

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/antonminaichev/gomarket/internal/inventory"
	"github.com/antonminaichev/gomarket/internal/ledger"
	"github.com/antonminaichev/gomarket/internal/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type prepareOrderReq struct {
	Address string `json:"address"`
}

type prepareOrderResp struct {
	OrderID      int64 `json:"order_id"`
	RemovedItems int   `json:"removed_items,omitempty"`
}

type makePurchaseReq struct {
	CouponID *int64 `json:"coupon_id,omitempty"`
}

func (h *Handler) PrepareOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req prepareOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	result, err := h.svc.PrepareOrder(r.Context(), userID, req.Address)
	switch {
	case errors.Is(err, ErrEmptyAddress) || errors.Is(err, ErrAddressTooLong):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrEmptyOrder):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(prepareOrderResp{
			OrderID:      result.Order.ID,
			RemovedItems: result.RemovedItems,
		})
	}
}

func (h *Handler) MakePurchase(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req makePurchaseReq
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}

	op, err := h.svc.MakePurchase(r.Context(), orderID, userID, req.CouponID)
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, inventory.ErrProductTypeNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNotOrderOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrAlreadyPaid):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrEmptyOrder):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrCouponNotUsable):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(op)
	}
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err = h.svc.CancelOrder(r.Context(), orderID, userID)
	switch {
	case errors.Is(err, ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNotOrderOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrCannotCancelPaid):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/coupons", h.Create)
	r.Post("/coupons/{id}/customers", h.Grant)
	return r
}

type createCouponReq struct {
	Description     string           `json:"description,omitempty"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	DiscountLimit   *decimal.Decimal `json:"discount_limit,omitempty"`
}

type grantReq struct {
	UserID int64 `json:"user_id"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCouponReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	c, err := h.svc.Create(r.Context(), req.Description, req.DiscountPercent, req.DiscountLimit)
	if err != nil {
		if errors.Is(err, ErrInvalidDiscount) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	var req grantReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.svc.Grant(r.Context(), id, req.UserID); err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

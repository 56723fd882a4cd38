package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

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
	r.Post("/markets", h.CreateMarket)
	r.Post("/products", h.CreateProduct)
	r.Post("/product-types", h.CreateProductType)
	r.Get("/product-types/{id}", h.GetProductType)
	r.Post("/product-types/{id}/units", h.AddUnits)
	r.Delete("/product-types/{id}/units", h.RemoveUnits)
	return r
}

type createMarketReq struct {
	Name string `json:"name"`
}

type createProductReq struct {
	MarketID int64           `json:"market_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency,omitempty"`
}

type createProductTypeReq struct {
	ProductID     int64             `json:"product_id"`
	Properties    map[string]string `json:"properties,omitempty"`
	MarkupPercent decimal.Decimal   `json:"markup_percent"`
	UnitsCount    int               `json:"units_count"`
}

type unitsReq struct {
	Count int `json:"count"`
}

func (h *Handler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req createMarketReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	m, err := h.svc.CreateMarket(r.Context(), userID, req.Name)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(m)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), req.MarketID, req.Name, req.Price, req.Currency)
	switch {
	case errors.Is(err, ErrInvalidPrice):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrMarketNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(p)
	}
}

func (h *Handler) CreateProductType(w http.ResponseWriter, r *http.Request) {
	var req createProductTypeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	t, err := h.svc.CreateProductType(r.Context(), req.ProductID, req.Properties, req.MarkupPercent, req.UnitsCount)
	switch {
	case errors.Is(err, ErrInvalidPrice) || errors.Is(err, ErrInvalidCount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrProductNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(t)
	}
}

func (h *Handler) GetProductType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	t, err := h.svc.ProductType(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProductTypeNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (h *Handler) AddUnits(w http.ResponseWriter, r *http.Request) {
	h.changeUnits(w, r, h.svc.AddUnits)
}

func (h *Handler) RemoveUnits(w http.ResponseWriter, r *http.Request) {
	h.changeUnits(w, r, h.svc.RemoveUnits)
}

func (h *Handler) changeUnits(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64, count int) error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	var req unitsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err = op(r.Context(), id, req.Count)
	switch {
	case errors.Is(err, ErrInvalidCount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInsufficientInventory):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrProductTypeNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

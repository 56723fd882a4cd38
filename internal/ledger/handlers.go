package ledger

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/antonminaichev/gomarket/internal/currency"
	"github.com/antonminaichev/gomarket/internal/middleware"
	"github.com/antonminaichev/gomarket/internal/types/ledger"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	bal, err := h.svc.Balance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrBalanceNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bal)
}

func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req ledger.TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	op, err := h.svc.TopUp(r.Context(), userID, req.Amount, req.Currency)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) || errors.Is(err, currency.ErrUnknownCurrency) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(op)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req ledger.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	op, err := h.svc.Withdraw(r.Context(), userID, req.Amount, req.Currency)
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, currency.ErrUnknownCurrency):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(op)
	}
}

func (h *Handler) ListOperations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	ops, err := h.svc.ListOperations(r.Context(), userID)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if len(ops) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ops)
}

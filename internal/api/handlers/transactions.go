package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/go-chi/chi/v5"
)

// DefaultPageSize is the transaction page size when no limit is given.
const DefaultPageSize = 50

// TransactionsHandler handles transaction and purchase endpoints.
type TransactionsHandler struct {
	svc *ledger.Service
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *ledger.Service) *TransactionsHandler {
	return &TransactionsHandler{svc: svc}
}

// ListTransactions handles GET /api/transactions. Supported query
// parameters: search, category, type, account_id, card_id, from and to
// (YYYY-MM-DD, inclusive), limit and offset.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	transactions, total, err := h.svc.ListTransactions(r.Context(), middleware.OwnerFromContext(r.Context()), filter)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": nonNil(transactions),
		"count":        len(transactions),
		"total":        total,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})
}

func parseTransactionFilter(r *http.Request) (ledger.TransactionFilter, error) {
	query := r.URL.Query()
	filter := ledger.TransactionFilter{
		Search:    query.Get("search"),
		Category:  query.Get("category"),
		AccountID: query.Get("account_id"),
		CardID:    query.Get("card_id"),
	}

	if raw := query.Get("type"); raw != "" {
		filter.Type = domain.TransactionType(strings.ToUpper(raw))
		if !filter.Type.Valid() {
			return filter, fmt.Errorf("invalid type %q", raw)
		}
	}

	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", name, raw)
		}
		*dst = &t
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, fmt.Errorf("to is before from")
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", DefaultPageSize); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

// CreateTransaction handles POST /api/transactions. The response lists
// every created record: one, or one per installment.
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in ledger.TransactionInput
	if err := decodeBody(r, &in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.svc.CreateTransaction(r.Context(), middleware.OwnerFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"transactions": created,
		"count":        len(created),
	})
}

// GetTransaction handles GET /api/transactions/{id}.
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.GetTransaction(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// UpdateTransaction handles PATCH /api/transactions/{id}.
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var patch ledger.TransactionPatch
	if err := decodeBody(r, &patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.svc.UpdateTransaction(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}.
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTransaction(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPurchase handles GET /api/purchases/{id}.
func (h *TransactionsHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	purchaseID := chi.URLParam(r, "id")
	installments, err := h.svc.ListPurchase(r.Context(), middleware.OwnerFromContext(r.Context()), purchaseID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get purchase")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"purchase_id":  purchaseID,
		"transactions": installments,
		"count":        len(installments),
	})
}

// DeletePurchase handles DELETE /api/purchases/{id}.
func (h *TransactionsHandler) DeletePurchase(w http.ResponseWriter, r *http.Request) {
	purchaseID := chi.URLParam(r, "id")
	removed, err := h.svc.DeletePurchase(r.Context(), middleware.OwnerFromContext(r.Context()), purchaseID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to delete purchase")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"purchase_id": purchaseID,
		"deleted":     removed,
	})
}

package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/go-chi/chi/v5"
)

// AccountsHandler handles account endpoints.
type AccountsHandler struct {
	svc *ledger.Service
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(svc *ledger.Service) *AccountsHandler {
	return &AccountsHandler{svc: svc}
}

// List handles GET /api/accounts.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListAccounts(r.Context(), middleware.OwnerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list accounts")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": nonNil(accounts),
		"count":    len(accounts),
	})
}

// Create handles POST /api/accounts.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in ledger.AccountInput
	if err := decodeBody(r, &in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	account, err := h.svc.CreateAccount(r.Context(), middleware.OwnerFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, account)
}

// Get handles GET /api/accounts/{id}.
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.GetAccount(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, account)
}

// Update handles PATCH /api/accounts/{id}.
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch ledger.AccountPatch
	if err := decodeBody(r, &patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	account, err := h.svc.UpdateAccount(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, account)
}

// Delete handles DELETE /api/accounts/{id}.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAccount(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CardsHandler handles credit card endpoints.
type CardsHandler struct {
	svc *ledger.Service
}

// NewCardsHandler creates a new cards handler.
func NewCardsHandler(svc *ledger.Service) *CardsHandler {
	return &CardsHandler{svc: svc}
}

// List handles GET /api/cards.
func (h *CardsHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.ListCards(r.Context(), middleware.OwnerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list cards")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cards": nonNil(cards),
		"count": len(cards),
	})
}

// Create handles POST /api/cards.
func (h *CardsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in ledger.CardInput
	if err := decodeBody(r, &in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	card, err := h.svc.CreateCard(r.Context(), middleware.OwnerFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create card")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, card)
}

// Get handles GET /api/cards/{id}.
func (h *CardsHandler) Get(w http.ResponseWriter, r *http.Request) {
	card, err := h.svc.GetCard(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get card")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, card)
}

// Update handles PATCH /api/cards/{id}.
func (h *CardsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch ledger.CardPatch
	if err := decodeBody(r, &patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	card, err := h.svc.UpdateCard(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update card")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, card)
}

// Delete handles DELETE /api/cards/{id}.
func (h *CardsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCard(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete card")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GoalsHandler handles savings goal endpoints.
type GoalsHandler struct {
	svc *ledger.Service
}

// NewGoalsHandler creates a new goals handler.
func NewGoalsHandler(svc *ledger.Service) *GoalsHandler {
	return &GoalsHandler{svc: svc}
}

// List handles GET /api/goals.
func (h *GoalsHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.svc.ListGoals(r.Context(), middleware.OwnerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list goals")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"goals": nonNil(goals),
		"count": len(goals),
	})
}

// Create handles POST /api/goals.
func (h *GoalsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in ledger.GoalInput
	if err := decodeBody(r, &in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	goal, err := h.svc.CreateGoal(r.Context(), middleware.OwnerFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create goal")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, goal)
}

// Get handles GET /api/goals/{id}.
func (h *GoalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	goal, err := h.svc.GetGoal(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get goal")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, goal)
}

// Update handles PATCH /api/goals/{id}.
func (h *GoalsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch ledger.GoalPatch
	if err := decodeBody(r, &patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	goal, err := h.svc.UpdateGoal(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update goal")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, goal)
}

// Delete handles DELETE /api/goals/{id}.
func (h *GoalsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteGoal(r.Context(), middleware.OwnerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete goal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/insights"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, insights.ErrNoGenerator):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err and writes the mapped status. Client errors
// echo the cause; server errors only say what failed.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, what string) {
	status := StatusFor(err)
	log := logger.FromContext(r.Context())

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(what)
		message := what
		if status == http.StatusServiceUnavailable {
			message = err.Error()
		}
		middleware.WriteError(w, status, message)
		return
	}

	log.Debug().Err(err).Int("status", status).Msg(what)
	var ve *ledger.ValidationError
	if errors.As(err, &ve) {
		middleware.WriteError(w, status, ve.Error())
		return
	}
	middleware.WriteError(w, status, err.Error())
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

// CategoriesHandler serves the category catalog.
type CategoriesHandler struct {
	catalog *ledger.CategoryCatalog
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(catalog *ledger.CategoryCatalog) *CategoriesHandler {
	return &CategoriesHandler{catalog: catalog}
}

// ListCategories handles GET /api/categories. An empty list means any
// category is accepted.
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.catalog.Allowed()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

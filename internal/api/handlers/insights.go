package handlers

import (
	"context"
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/insights"
)

// maxSummaryMonths bounds the summary window.
const maxSummaryMonths = 120

// InsightService builds ledger summaries and AI reports.
type InsightService interface {
	Summary(ctx context.Context, owner string, months int) (*insights.Summary, error)
	Generate(ctx context.Context, owner string, months int) (*insights.Report, error)
}

// InsightsHandler handles summary and insight endpoints.
type InsightsHandler struct {
	svc InsightService
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(svc InsightService) *InsightsHandler {
	return &InsightsHandler{svc: svc}
}

func parseMonths(r *http.Request) (int, bool) {
	months, err := queryInt(r, "months", insights.DefaultMonths)
	if err != nil || months < 1 || months > maxSummaryMonths {
		return 0, false
	}
	return months, true
}

// Summary handles GET /api/summary?months=N.
func (h *InsightsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	months, ok := parseMonths(r)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "months must be between 1 and 120")
		return
	}

	summary, err := h.svc.Summary(r.Context(), middleware.OwnerFromContext(r.Context()), months)
	if err != nil {
		writeServiceError(w, r, err, "Failed to build summary")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}

// Insights handles GET /api/insights?months=N.
func (h *InsightsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	months, ok := parseMonths(r)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "months must be between 1 and 120")
		return
	}

	report, err := h.svc.Generate(r.Context(), middleware.OwnerFromContext(r.Context()), months)
	if err != nil {
		writeServiceError(w, r, err, "Failed to generate insights")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

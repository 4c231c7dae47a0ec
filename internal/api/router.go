// Package api exposes the ledger over HTTP.
package api

import (
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/handlers"
	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Services are the backends the router serves.
type Services struct {
	Ledger    *ledger.Service
	Insights  handlers.InsightService
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
}

// NewRouter builds the HTTP handler. Everything under /api requires the
// X-User-ID header.
func NewRouter(svc Services, log zerolog.Logger) http.Handler {
	accountsHandler := handlers.NewAccountsHandler(svc.Ledger)
	cardsHandler := handlers.NewCardsHandler(svc.Ledger)
	goalsHandler := handlers.NewGoalsHandler(svc.Ledger)
	transactionsHandler := handlers.NewTransactionsHandler(svc.Ledger)
	categoriesHandler := handlers.NewCategoriesHandler(svc.Ledger.Catalog())
	insightsHandler := handlers.NewInsightsHandler(svc.Insights)
	jobsHandler := handlers.NewJobsHandler(svc.Publisher, svc.Jobs)

	r := chi.NewRouter()

	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Owner)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accountsHandler.List)
			r.Post("/", accountsHandler.Create)
			r.Get("/{id}", accountsHandler.Get)
			r.Patch("/{id}", accountsHandler.Update)
			r.Delete("/{id}", accountsHandler.Delete)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", cardsHandler.List)
			r.Post("/", cardsHandler.Create)
			r.Get("/{id}", cardsHandler.Get)
			r.Patch("/{id}", cardsHandler.Update)
			r.Delete("/{id}", cardsHandler.Delete)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", goalsHandler.List)
			r.Post("/", goalsHandler.Create)
			r.Get("/{id}", goalsHandler.Get)
			r.Patch("/{id}", goalsHandler.Update)
			r.Delete("/{id}", goalsHandler.Delete)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", transactionsHandler.ListTransactions)
			r.Post("/", transactionsHandler.CreateTransaction)
			r.Get("/{id}", transactionsHandler.GetTransaction)
			r.Patch("/{id}", transactionsHandler.UpdateTransaction)
			r.Delete("/{id}", transactionsHandler.DeleteTransaction)
		})

		r.Get("/purchases/{id}", transactionsHandler.GetPurchase)
		r.Delete("/purchases/{id}", transactionsHandler.DeletePurchase)

		r.Get("/categories", categoriesHandler.ListCategories)
		r.Get("/summary", insightsHandler.Summary)
		r.Get("/insights", insightsHandler.Insights)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", jobsHandler.ListJobs)
			r.Post("/", jobsHandler.EnqueueJob)
			r.Get("/{id}", jobsHandler.GetJob)
		})
	})

	return r
}

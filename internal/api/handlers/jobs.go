package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/go-chi/chi/v5"
)

// JobsHandler handles job-related endpoints. Jobs are scoped to the
// requesting owner.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore) *JobsHandler {
	return &JobsHandler{
		publisher: publisher,
		store:     store,
	}
}

// EnqueueJob handles POST /api/jobs.
func (h *JobsHandler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type   jobs.JobType `json:"type"`
		DryRun bool         `json:"dry_run"`
	}
	if err := decodeBody(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Type.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "type must be one of backup_ledger, export_ledger, sync_notion")
		return
	}

	job := &jobs.LedgerJob{
		Type:   req.Type,
		Owner:  middleware.OwnerFromContext(r.Context()),
		DryRun: req.DryRun,
	}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		writeServiceError(w, r, err, "Failed to enqueue job")
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().
		Str("job_id", job.JobID).
		Str("job_type", string(job.Type)).
		Msg("Job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err == nil && job.Owner != middleware.OwnerFromContext(r.Context()) {
		err = jobs.ErrJobNotFound
	}
	if err != nil {
		writeServiceError(w, r, err, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Owner:  middleware.OwnerFromContext(r.Context()),
		Type:   jobs.JobType(query.Get("type")),
		Status: jobs.JobStatus(query.Get("status")),
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  nonNil(jobsList),
		"count": len(jobsList),
	})
}

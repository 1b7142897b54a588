package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
)

type createJobRequest struct {
	TemplateID    string                `json:"templateId"`
	AssetMappings []domain.AssetMapping `json:"assetMappings"`
	Metadata      map[string]any        `json:"metadata"`
}

func (req *createJobRequest) validate() string {
	if req.TemplateID == "" {
		return "templateId is required"
	}
	if len(req.AssetMappings) == 0 {
		return "assetMappings must not be empty"
	}
	for i, m := range req.AssetMappings {
		if m.SlotID == "" || m.Value == "" {
			return "assetMappings[" + strconv.Itoa(i) + "] needs slotId and value"
		}
	}
	return ""
}

func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_argument", "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		a.error(w, http.StatusBadRequest, "invalid_argument", msg)
		return
	}

	job := &domain.Job{
		ID:            uuid.NewString(),
		TemplateID:    req.TemplateID,
		AssetMappings: req.AssetMappings,
		Status:        domain.JobStatusQueued,
		CreatedAt:     time.Now().UTC(),
		Metadata:      req.Metadata,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Msg("job insert failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	if err := a.Enqueuer.EnqueueRenderJob(r.Context(), job.ID); err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("render enqueue failed")
		jobErr := domain.JobError{
			Code:      domain.ErrCodeRenderTriggerFailed,
			Message:   "failed to queue render task",
			Timestamp: time.Now().UTC(),
		}
		if ferr := a.Jobs.MarkFailed(r.Context(), job.ID, domain.JobStatusQueued, jobErr); ferr != nil {
			a.Logger.Error().Err(ferr).Str("job_id", job.ID).Msg("failure write after enqueue error failed")
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue render task")
		return
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"jobId":  job.ID,
		"status": string(domain.JobStatusQueued),
	})
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("job load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"job": jobView(job, a.mergedProgress(r, job))})
}

func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	status := domain.JobStatus(r.URL.Query().Get("status"))

	jobs, err := a.Jobs.List(r.Context(), status, limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("job list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	items := make([]map[string]any, 0, len(jobs))
	for i := range jobs {
		items = append(items, jobView(&jobs[i], jobs[i].Progress))
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": items})
}

// mergedProgress prefers the cached live value while the job is rendering;
// the DB row only sees periodic conditional writes.
func (a *App) mergedProgress(r *http.Request, job *domain.Job) int {
	if a.Progress == nil || job.Status != domain.JobStatusRendering {
		return job.Progress
	}
	if cached, ok := a.Progress.Get(r.Context(), job.ID); ok && cached > job.Progress {
		return cached
	}
	return job.Progress
}

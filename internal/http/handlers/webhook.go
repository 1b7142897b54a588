package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
	"github.com/ivanivanho-work/template-stamper/internal/render"
	"github.com/ivanivanho-work/template-stamper/internal/storage"
)

const maxWebhookBody = 1 << 20

// RenderComplete terminates async renders. The backend calls it exactly
// zero or more times per job, so every outcome write is conditional and a
// redelivered notification for a finished job answers 200 without touching
// the row.
func (a *App) RenderComplete(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_argument", "unreadable body")
		return
	}

	completion, err := render.ParseCompletion(body)
	if err != nil {
		if errors.Is(err, render.ErrNoJobID) {
			a.error(w, http.StatusBadRequest, "invalid_argument", "missing job correlation id")
			return
		}
		a.error(w, http.StatusBadRequest, "invalid_argument", "malformed completion payload")
		return
	}

	logger := a.Logger.With().Str("job_id", completion.JobID).Logger()

	job, err := a.Jobs.GetByID(r.Context(), completion.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "unknown job")
			return
		}
		logger.Error().Err(err).Msg("webhook job load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	if job.Terminal() {
		logger.Info().Str("status", string(job.Status)).Msg("completion redelivered for finished job")
		a.json(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	if !completion.Success {
		a.recordFailure(w, r, logger, job, completion)
		return
	}

	key, publicURL, err := a.archiveArtifact(r, completion)
	if err != nil {
		logger.Error().Err(err).Msg("artifact archive failed")
		a.failWebhookJob(r, logger, job, err.Error())
		a.error(w, http.StatusInternalServerError, "internal", "failed to archive render output")
		return
	}

	if err := a.Jobs.MarkCompleted(r.Context(), job.ID, key, publicURL, time.Now().UTC()); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			logger.Warn().Msg("completion lost the race, job already settled")
			a.json(w, http.StatusOK, map[string]any{"received": true})
			return
		}
		logger.Error().Err(err).Msg("completion write failed")
		a.failWebhookJob(r, logger, job, "completion write failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record completion")
		return
	}

	meta := map[string]any{}
	if completion.RenderID != "" {
		meta["remotionRenderId"] = completion.RenderID
	}
	for k, v := range completion.Metadata {
		meta[k] = v
	}
	if len(meta) > 0 {
		if err := a.Jobs.MergeMetadata(r.Context(), job.ID, meta); err != nil {
			logger.Warn().Err(err).Msg("metadata write failed")
		}
	}

	logger.Info().Msg("job completed via webhook")
	a.json(w, http.StatusOK, map[string]any{"received": true})
}

func (a *App) recordFailure(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, job *domain.Job, completion *render.Completion) {
	jobErr := domain.JobError{
		Code:      domain.ErrCodeRenderFailed,
		Message:   completion.FirstError(),
		Timestamp: time.Now().UTC(),
	}
	if err := a.Jobs.MarkFailed(r.Context(), job.ID, job.Status, jobErr); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			logger.Warn().Msg("failure notification lost the race, job already settled")
			a.json(w, http.StatusOK, map[string]any{"received": true})
			return
		}
		logger.Error().Err(err).Msg("failure write failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record failure")
		return
	}
	logger.Error().Str("reason", jobErr.Message).Msg("job failed via webhook")
	a.json(w, http.StatusOK, map[string]any{"received": true})
}

// archiveArtifact copies the rendered video from the backend's delivery URL
// into our blob store and returns the stored key plus a public URL. The body
// is streamed, never buffered whole.
func (a *App) archiveArtifact(r *http.Request, completion *render.Completion) (string, string, error) {
	rc, size, err := a.Artifacts.FetchArtifact(r.Context(), completion.OutputURL)
	if err != nil {
		return "", "", err
	}
	defer rc.Close()

	key := storage.OutputKey(completion.JobID, "mp4")
	storedKey, err := a.Store.Put(r.Context(), key, rc, size, "video/mp4")
	if err != nil {
		return "", "", err
	}
	publicURL, err := a.Store.PresignedGetURL(r.Context(), storedKey, a.OutputTTL)
	if err != nil {
		return "", "", err
	}
	return storedKey, publicURL, nil
}

func (a *App) failWebhookJob(r *http.Request, logger zerolog.Logger, job *domain.Job, reason string) {
	jobErr := domain.JobError{
		Code:      domain.ErrCodeWebhookHandler,
		Message:   reason,
		Timestamp: time.Now().UTC(),
	}
	if err := a.Jobs.MarkFailed(r.Context(), job.ID, job.Status, jobErr); err != nil && !errors.Is(err, domain.ErrConflict) {
		logger.Error().Err(err).Msg("webhook failure write failed")
	}
}

package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
	"github.com/ivanivanho-work/template-stamper/internal/render"
	"github.com/ivanivanho-work/template-stamper/internal/storage"
)

// Backend is the render invocation surface the orchestrator needs.
// *render.Client implements it.
type Backend interface {
	RenderSync(ctx context.Context, req render.InvokeRequest) (*render.SyncResult, error)
	RenderStart(ctx context.Context, req render.InvokeRequest) (*render.AsyncStart, error)
}

// Orchestrator drives one job from queued to its terminal state (or, in
// async mode, hands it off to the completion webhook). It runs inside the
// worker as a task handler; delivery is at-least-once, so every status
// transition is a conditional write and a redelivered job short-circuits.
type Orchestrator struct {
	jobs      domain.JobRepository
	templates domain.TemplateRepository
	store     storage.Store
	backend   Backend
	progress  render.ProgressSink
	mode      string
	inputTTL  time.Duration
	outputTTL time.Duration
	logger    zerolog.Logger
}

// Options bundles the orchestrator's collaborators.
type Options struct {
	Jobs      domain.JobRepository
	Templates domain.TemplateRepository
	Store     storage.Store
	Backend   Backend
	Progress  render.ProgressSink
	Mode      string // "sync" or "async"
	InputTTL  time.Duration
	OutputTTL time.Duration
	Logger    zerolog.Logger
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{
		jobs:      opts.Jobs,
		templates: opts.Templates,
		store:     opts.Store,
		backend:   opts.Backend,
		progress:  opts.Progress,
		mode:      opts.Mode,
		inputTTL:  opts.InputTTL,
		outputTTL: opts.OutputTTL,
		logger:    opts.Logger,
	}
}

// ProcessJob executes the render workflow for one job. A nil return means
// the job reached a decision (including a recorded failure); a non-nil
// return asks the queue to retry a transient fault.
func (o *Orchestrator) ProcessJob(ctx context.Context, jobID string) error {
	logger := o.logger.With().Str("job_id", jobID).Logger()

	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn().Msg("render task references unknown job")
			return nil
		}
		return err
	}
	if job.Status != domain.JobStatusQueued {
		logger.Info().Str("status", string(job.Status)).Msg("job already picked up, skipping redelivery")
		return nil
	}

	tpl, err := o.templates.GetByID(ctx, job.TemplateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			o.failJob(ctx, logger, jobID, domain.JobStatusQueued, domain.ErrCodeRenderTriggerFailed, "template not found: "+job.TemplateID)
			return nil
		}
		return err
	}

	props, err := BuildInputProps(ctx, tpl, job.AssetMappings, o.store, o.inputTTL, logger)
	if err != nil {
		o.failJob(ctx, logger, jobID, domain.JobStatusQueued, domain.ErrCodeRenderTriggerFailed, err.Error())
		return nil
	}

	// Observers must see the job rendering before the potentially slow
	// backend call. The conditional write also absorbs trigger redelivery.
	if err := o.jobs.MarkRendering(ctx, jobID, time.Now().UTC()); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			logger.Info().Msg("job no longer queued, skipping")
			return nil
		}
		return err
	}

	req := render.InvokeRequest{
		JobID:       jobID,
		ServeURL:    tpl.ServeURL,
		Composition: tpl.CompositionID,
		InputProps:  props,
	}

	if o.mode == "async" {
		return o.startAsync(ctx, logger, jobID, req)
	}
	return o.renderSync(ctx, logger, jobID, req)
}

func (o *Orchestrator) renderSync(ctx context.Context, logger zerolog.Logger, jobID string, req render.InvokeRequest) error {
	logger.Info().Str("composition", req.Composition).Msg("invoking render backend")

	result, err := o.backend.RenderSync(ctx, req)
	if err != nil {
		o.failJob(ctx, logger, jobID, domain.JobStatusRendering, domain.ErrCodeRenderFailed, err.Error())
		return nil
	}

	key := storage.OutputKey(jobID, "mp4")
	storedKey, err := o.store.Put(ctx, key, bytes.NewReader(result.Video), int64(len(result.Video)), "video/mp4")
	if err != nil {
		o.failJob(ctx, logger, jobID, domain.JobStatusRendering, domain.ErrCodeRenderFailed, err.Error())
		return nil
	}

	publicURL, err := o.store.PresignedGetURL(ctx, storedKey, o.outputTTL)
	if err != nil {
		o.failJob(ctx, logger, jobID, domain.JobStatusRendering, domain.ErrCodeRenderFailed, err.Error())
		return nil
	}

	if err := o.jobs.MarkCompleted(ctx, jobID, storedKey, publicURL, time.Now().UTC()); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			logger.Warn().Msg("job left rendering before completion write")
			return nil
		}
		return err
	}

	if err := o.jobs.MergeMetadata(ctx, jobID, map[string]any{"sizeBytes": result.Size}); err != nil {
		logger.Warn().Err(err).Msg("metadata write failed")
	}

	logger.Info().Int64("size_bytes", result.Size).Msg("job completed")
	return nil
}

func (o *Orchestrator) startAsync(ctx context.Context, logger zerolog.Logger, jobID string, req render.InvokeRequest) error {
	start, err := o.backend.RenderStart(ctx, req)
	if err != nil {
		o.failJob(ctx, logger, jobID, domain.JobStatusRendering, domain.ErrCodeRenderFailed, err.Error())
		return nil
	}

	meta := map[string]any{"remotionRenderId": start.RenderID}
	if start.Location != "" {
		meta["renderLocation"] = start.Location
	}
	if err := o.jobs.MergeMetadata(ctx, jobID, meta); err != nil {
		logger.Warn().Err(err).Str("render_id", start.RenderID).Msg("metadata write failed")
	}

	if o.progress != nil {
		o.progress.Report(ctx, jobID, 0)
	}

	logger.Info().Str("render_id", start.RenderID).Msg("render started, awaiting completion webhook")
	return nil
}

// failJob records a terminal failure. The write is best-effort: when it
// cannot land (conflict or storage fault) the job stays in its last state
// and the reaper eventually sweeps it.
func (o *Orchestrator) failJob(ctx context.Context, logger zerolog.Logger, jobID string, from domain.JobStatus, code, message string) {
	jobErr := domain.JobError{Code: code, Message: message, Timestamp: time.Now().UTC()}
	if err := o.jobs.MarkFailed(ctx, jobID, from, jobErr); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			logger.Warn().Str("code", code).Msg("failure write skipped, job state moved on")
			return
		}
		logger.Error().Err(err).Str("code", code).Msg("failed to record job failure")
		return
	}
	logger.Error().Str("code", code).Str("reason", message).Msg("job failed")
}

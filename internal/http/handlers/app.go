package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
	"github.com/ivanivanho-work/template-stamper/internal/infra/geoip"
	"github.com/ivanivanho-work/template-stamper/internal/orchestrator"
	"github.com/ivanivanho-work/template-stamper/internal/render"
	"github.com/ivanivanho-work/template-stamper/internal/storage"
)

// Artifacts fetches rendered output from the backend's delivery URL.
// *render.Client implements it.
type Artifacts interface {
	FetchArtifact(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

type App struct {
	Jobs      domain.JobRepository
	Templates domain.TemplateRepository
	Assets    domain.AssetRepository
	Store     storage.Store
	Enqueuer  orchestrator.Enqueuer
	Artifacts Artifacts
	Progress  *render.ProgressCache
	Geo       geoip.CountryResolver
	OutputTTL time.Duration
	Logger    zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}

func jobView(job *domain.Job, progress int) map[string]any {
	v := map[string]any{
		"jobId":         job.ID,
		"templateId":    job.TemplateID,
		"assetMappings": job.AssetMappings,
		"status":        string(job.Status),
		"progress":      progress,
		"createdAt":     job.CreatedAt,
	}
	if job.StartedAt != nil {
		v["startedAt"] = job.StartedAt
	}
	if job.CompletedAt != nil {
		v["completedAt"] = job.CompletedAt
	}
	if job.OutputURL != "" {
		v["outputVideoUrl"] = job.OutputURL
	}
	if job.OutputPublic != "" {
		v["outputVideoPublicUrl"] = job.OutputPublic
	}
	if job.Error != nil {
		v["error"] = job.Error
	}
	if len(job.Metadata) > 0 {
		v["metadata"] = job.Metadata
	}
	return v
}

package handlers

import (
	"net/http"
	"time"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
)

func (a *App) JobStats24h(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	counts, err := a.Jobs.StatusCounts(r.Context(), since)
	if err != nil {
		a.Logger.Error().Err(err).Msg("stats query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	a.json(w, http.StatusOK, map[string]any{
		"window":    "24h",
		"total":     total,
		"queued":    counts[domain.JobStatusQueued],
		"rendering": counts[domain.JobStatusRendering],
		"completed": counts[domain.JobStatusCompleted],
		"failed":    counts[domain.JobStatusFailed],
	})
}

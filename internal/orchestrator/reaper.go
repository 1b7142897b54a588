package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
)

// Reaper sweeps jobs stuck in rendering. A render abandoned by a worker
// timeout or a webhook that never arrives would otherwise stay "rendering"
// forever; the sweep fails them after a configured age so the history view
// tells the truth.
type Reaper struct {
	jobs     domain.JobRepository
	interval time.Duration
	after    time.Duration
	logger   zerolog.Logger
}

func NewReaper(jobs domain.JobRepository, interval, after time.Duration, logger zerolog.Logger) *Reaper {
	return &Reaper{jobs: jobs, interval: interval, after: after, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.after)
	jobErr := domain.JobError{
		Code:      domain.ErrCodeRenderTimeout,
		Message:   fmt.Sprintf("render did not complete within %s", r.after),
		Timestamp: time.Now().UTC(),
	}
	n, err := r.jobs.ReapStale(ctx, cutoff, jobErr)
	if err != nil {
		r.logger.Error().Err(err).Msg("reaper sweep failed")
		return
	}
	if n > 0 {
		r.logger.Warn().Int64("count", n).Msg("swept stale rendering jobs")
	}
}

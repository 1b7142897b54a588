package render

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
)

const (
	progressKeyPrefix = "job:progress:"
	progressTTL       = 24 * time.Hour
)

// ProgressSink receives opportunistic progress reports for a running render.
// Implementations must swallow their own failures: a progress write must
// never fail the render that produced it.
type ProgressSink interface {
	Report(ctx context.Context, jobID string, percent int)
}

// ProgressCache keeps the latest progress per job in Redis so the live
// subscription stream can serve fresher values than the document store.
type ProgressCache struct {
	client *redis.Client
}

func NewProgressCache(client *redis.Client) *ProgressCache {
	return &ProgressCache{client: client}
}

// Set records the latest progress for the job.
func (c *ProgressCache) Set(ctx context.Context, jobID string, percent int) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, progressKeyPrefix+jobID, percent, progressTTL).Err()
}

// Get returns the cached progress and whether a value was present.
func (c *ProgressCache) Get(ctx context.Context, jobID string) (int, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, progressKeyPrefix+jobID).Result()
	if err != nil {
		return 0, false
	}
	percent, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return percent, true
}

type progressSink struct {
	jobs   domain.JobRepository
	cache  *ProgressCache
	logger zerolog.Logger
}

// NewProgressSink builds the best-effort sink writing through to the cache
// and the job document.
func NewProgressSink(jobs domain.JobRepository, cache *ProgressCache, logger zerolog.Logger) ProgressSink {
	return &progressSink{jobs: jobs, cache: cache, logger: logger}
}

func (s *progressSink) Report(ctx context.Context, jobID string, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if err := s.cache.Set(ctx, jobID, percent); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("progress cache write failed")
	}
	if s.jobs == nil {
		return
	}
	if err := s.jobs.SetProgress(ctx, jobID, percent); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("progress update failed")
	}
}

package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
	"github.com/ivanivanho-work/template-stamper/internal/infra"
	"github.com/ivanivanho-work/template-stamper/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository. Status transitions are
// conditional updates keyed on the expected prior status; a transition whose
// precondition no longer holds surfaces domain.ErrConflict so that redelivered
// triggers and webhooks become no-ops.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a job repository backed by PostgreSQL.
func NewJobRepository(sqlx infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sqlx}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	meta := job.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal job metadata: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertJob,
		job.ID,
		job.TemplateID,
		job.MappingsJSON(),
		job.Status,
		metaJSON,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJob, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// List returns jobs ordered by creation time descending, optionally filtered
// by status. An empty status matches everything.
func (r *JobRepositoryPG) List(ctx context.Context, status domain.JobStatus, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListJobs, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// MarkRendering transitions queued -> rendering.
func (r *JobRepositoryPG) MarkRendering(ctx context.Context, jobID string, startedAt time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkJobRendering, jobID, startedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// MarkCompleted transitions rendering -> completed and records the output.
func (r *JobRepositoryPG) MarkCompleted(ctx context.Context, jobID, outputURL, outputPublic string, completedAt time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkJobCompleted, jobID, outputURL, outputPublic, completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// MarkFailed transitions the job to failed from the expected prior status.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID string, from domain.JobStatus, jobErr domain.JobError) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkJobFailed, jobID, from, jobErr.Code, jobErr.Message, jobErr.Timestamp)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// SetProgress records render progress. Progress never decreases and only
// applies while the job is rendering; a write that matches no row is not an
// error because progress reporting is best-effort.
func (r *JobRepositoryPG) SetProgress(ctx context.Context, jobID string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := r.sql.Exec(ctx, sqlinline.QSetJobProgress, jobID, progress)
	return err
}

// MergeMetadata shallow-merges the given keys into the job metadata.
func (r *JobRepositoryPG) MergeMetadata(ctx context.Context, jobID string, metadata map[string]any) error {
	if len(metadata) == 0 {
		return nil
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QMergeJobMetadata, jobID, metaJSON)
	return err
}

// StatusCounts returns the number of jobs per status created since the cutoff.
func (r *JobRepositoryPG) StatusCounts(ctx context.Context, since time.Time) (map[domain.JobStatus]int64, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QJobStatusCounts, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.JobStatus(status)] = n
	}
	return counts, rows.Err()
}

// ReapStale fails rendering jobs whose render started before the cutoff and
// returns how many were swept.
func (r *JobRepositoryPG) ReapStale(ctx context.Context, olderThan time.Time, jobErr domain.JobError) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QReapStaleJobs, olderThan, jobErr.Code, jobErr.Message)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job          domain.Job
		mappingsJSON []byte
		metaJSON     []byte
		outputURL    *string
		outputPublic *string
		errCode      *string
		errMessage   *string
		errAt        *time.Time
	)
	if err := row.Scan(
		&job.ID,
		&job.TemplateID,
		&mappingsJSON,
		&job.Status,
		&job.Progress,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
		&outputURL,
		&outputPublic,
		&errCode,
		&errMessage,
		&errAt,
		&metaJSON,
	); err != nil {
		return nil, err
	}
	if len(mappingsJSON) > 0 {
		if err := json.Unmarshal(mappingsJSON, &job.AssetMappings); err != nil {
			return nil, fmt.Errorf("decode asset mappings: %w", err)
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &job.Metadata); err != nil {
			return nil, fmt.Errorf("decode job metadata: %w", err)
		}
	}
	if outputURL != nil {
		job.OutputURL = *outputURL
	}
	if outputPublic != nil {
		job.OutputPublic = *outputPublic
	}
	if errCode != nil || errMessage != nil {
		jobError := domain.JobError{}
		if errCode != nil {
			jobError.Code = *errCode
		}
		if errMessage != nil {
			jobError.Message = *errMessage
		}
		if errAt != nil {
			jobError.Timestamp = *errAt
		}
		job.Error = &jobError
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)

package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for job entities. Status transitions are
// conditional on the expected prior status so that at-least-once trigger
// delivery and webhook redelivery stay safe; a transition whose precondition
// no longer holds returns ErrConflict.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	List(ctx context.Context, status JobStatus, limit int) ([]Job, error)
	MarkRendering(ctx context.Context, jobID string, startedAt time.Time) error
	MarkCompleted(ctx context.Context, jobID, outputURL, outputPublic string, completedAt time.Time) error
	MarkFailed(ctx context.Context, jobID string, from JobStatus, jobErr JobError) error
	SetProgress(ctx context.Context, jobID string, progress int) error
	MergeMetadata(ctx context.Context, jobID string, metadata map[string]any) error
	StatusCounts(ctx context.Context, since time.Time) (map[JobStatus]int64, error)
	ReapStale(ctx context.Context, olderThan time.Time, jobErr JobError) (int64, error)
}

// TemplateRepository defines persistence for templates.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *Template) error
	GetByID(ctx context.Context, templateID string) (*Template, error)
	ListActive(ctx context.Context) ([]Template, error)
}

// AssetRepository handles persistence for gallery assets.
type AssetRepository interface {
	Create(ctx context.Context, asset *Asset) error
	List(ctx context.Context, limit, offset int) ([]Asset, error)
}

package handlers

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
)

type fakeJobs struct {
	mu      sync.Mutex
	jobs    map[string]*domain.Job
	created []string
}

func newFakeJobs(jobs ...*domain.Job) *fakeJobs {
	f := &fakeJobs{jobs: make(map[string]*domain.Job)}
	for _, j := range jobs {
		f.jobs[j.ID] = j
	}
	return f
}

func (f *fakeJobs) Create(_ context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
	f.created = append(f.created, job.ID)
	return nil
}

func (f *fakeJobs) GetByID(_ context.Context, jobID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobs) List(_ context.Context, status domain.JobStatus, limit int) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Job
	for _, j := range f.jobs {
		if status != "" && j.Status != status {
			continue
		}
		out = append(out, *j)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeJobs) MarkRendering(_ context.Context, jobID string, startedAt time.Time) error {
	return f.transition(jobID, domain.JobStatusQueued, func(j *domain.Job) {
		j.Status = domain.JobStatusRendering
		j.StartedAt = &startedAt
	})
}

func (f *fakeJobs) MarkCompleted(_ context.Context, jobID, outputURL, outputPublic string, completedAt time.Time) error {
	return f.transition(jobID, domain.JobStatusRendering, func(j *domain.Job) {
		j.Status = domain.JobStatusCompleted
		j.Progress = 100
		j.OutputURL = outputURL
		j.OutputPublic = outputPublic
		j.CompletedAt = &completedAt
	})
}

func (f *fakeJobs) MarkFailed(_ context.Context, jobID string, from domain.JobStatus, jobErr domain.JobError) error {
	return f.transition(jobID, from, func(j *domain.Job) {
		j.Status = domain.JobStatusFailed
		j.Error = &jobErr
	})
}

func (f *fakeJobs) SetProgress(context.Context, string, int) error { return nil }

func (f *fakeJobs) MergeMetadata(_ context.Context, jobID string, metadata map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Metadata == nil {
		j.Metadata = map[string]any{}
	}
	for k, v := range metadata {
		j.Metadata[k] = v
	}
	return nil
}

func (f *fakeJobs) StatusCounts(context.Context, time.Time) (map[domain.JobStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[domain.JobStatus]int64)
	for _, j := range f.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

func (f *fakeJobs) ReapStale(context.Context, time.Time, domain.JobError) (int64, error) {
	return 0, nil
}

func (f *fakeJobs) transition(jobID string, from domain.JobStatus, apply func(*domain.Job)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok || j.Status != from {
		return domain.ErrConflict
	}
	apply(j)
	return nil
}

type fakeTemplates struct {
	templates map[string]*domain.Template
}

func (f *fakeTemplates) Create(_ context.Context, tpl *domain.Template) error {
	if _, ok := f.templates[tpl.ID]; ok {
		return domain.ErrConflict
	}
	f.templates[tpl.ID] = tpl
	return nil
}

func (f *fakeTemplates) GetByID(_ context.Context, id string) (*domain.Template, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tpl, nil
}

func (f *fakeTemplates) ListActive(context.Context) ([]domain.Template, error) {
	var out []domain.Template
	for _, tpl := range f.templates {
		if tpl.Status == domain.TemplateStatusActive {
			out = append(out, *tpl)
		}
	}
	return out, nil
}

type fakeAssets struct {
	mu     sync.Mutex
	assets []*domain.Asset
}

func (f *fakeAssets) Create(_ context.Context, asset *domain.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets = append(f.assets, asset)
	return nil
}

func (f *fakeAssets) List(_ context.Context, limit, offset int) ([]domain.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Asset
	for i := offset; i < len(f.assets) && len(out) < limit; i++ {
		out = append(out, *f.assets[i])
	}
	return out, nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return key, nil
}

func (f *fakeStore) PresignedGetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type fakeEnqueuer struct {
	mu       sync.Mutex
	enqueued []string
	err      error
}

func (f *fakeEnqueuer) EnqueueRenderJob(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, jobID)
	return nil
}

var errEnqueueDown = errors.New("queue unavailable")

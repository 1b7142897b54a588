package orchestrator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
	"github.com/ivanivanho-work/template-stamper/internal/render"
)

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
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

func (f *fakeJobs) List(context.Context, domain.JobStatus, int) ([]domain.Job, error) {
	return nil, nil
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

func (f *fakeJobs) SetProgress(_ context.Context, jobID string, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[jobID]; ok && j.Status == domain.JobStatusRendering && progress > j.Progress {
		j.Progress = progress
	}
	return nil
}

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
	return nil, nil
}

func (f *fakeJobs) ReapStale(_ context.Context, olderThan time.Time, jobErr domain.JobError) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, j := range f.jobs {
		if j.Status == domain.JobStatusRendering && j.StartedAt != nil && j.StartedAt.Before(olderThan) {
			j.Status = domain.JobStatusFailed
			e := jobErr
			j.Error = &e
			n++
		}
	}
	return n, nil
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

func (f *fakeTemplates) Create(context.Context, *domain.Template) error { return nil }

func (f *fakeTemplates) GetByID(_ context.Context, id string) (*domain.Template, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tpl, nil
}

func (f *fakeTemplates) ListActive(context.Context) ([]domain.Template, error) { return nil, nil }

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

func testTemplate() *domain.Template {
	return &domain.Template{
		ID:            "tpl-1",
		Name:          "Shorts V1",
		Version:       1,
		CompositionID: "VeoShortsV1",
		ServeURL:      "https://bundles.example.com/shorts-v1",
		Slots: []domain.Slot{
			{ID: "hero", Kind: domain.SlotKindImage, Required: true},
			{ID: "caption", Kind: domain.SlotKindText},
		},
		Status: domain.TemplateStatusActive,
	}
}

func newTestOrchestrator(jobs *fakeJobs, templates *fakeTemplates, store *fakeStore, backendURL, mode string) *Orchestrator {
	return New(Options{
		Jobs:      jobs,
		Templates: templates,
		Store:     store,
		Backend:   render.NewClient(backendURL, "https://api.example.com/v1/renders/complete", 30*time.Second),
		Mode:      mode,
		InputTTL:  time.Hour,
		OutputTTL: 7 * 24 * time.Hour,
		Logger:    zerolog.Nop(),
	})
}

func TestProcessJobSyncSuccess(t *testing.T) {
	video := []byte("fake-mp4-bytes")
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			ServeURL    string            `json:"serveUrl"`
			Composition string            `json:"composition"`
			InputProps  map[string]string `json:"inputProps"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Composition != "VeoShortsV1" {
			t.Errorf("composition mismatch: %q", body.Composition)
		}
		if body.InputProps["caption"] != "Hello" {
			t.Errorf("caption prop mismatch: %#v", body.InputProps)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"video":   base64.StdEncoding.EncodeToString(video),
			"size":    len(video),
		})
	}))
	defer backend.Close()

	job := &domain.Job{
		ID:         "job-1",
		TemplateID: "tpl-1",
		Status:     domain.JobStatusQueued,
		AssetMappings: []domain.AssetMapping{
			{SlotID: "hero", Value: "assets/default/original/a1.png"},
			{SlotID: "caption", Value: "Hello"},
		},
	}
	jobs := newFakeJobs(job)
	store := newFakeStore()
	o := newTestOrchestrator(jobs, &fakeTemplates{templates: map[string]*domain.Template{"tpl-1": testTemplate()}}, store, backend.URL, "sync")

	if err := o.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessJob returned error: %v", err)
	}

	got, _ := jobs.GetByID(context.Background(), "job-1")
	if got.Status != domain.JobStatusCompleted {
		t.Fatalf("status mismatch: %s", got.Status)
	}
	if got.Progress != 100 {
		t.Fatalf("progress mismatch: %d", got.Progress)
	}
	if got.Error != nil {
		t.Fatalf("completed job must not carry an error: %+v", got.Error)
	}
	if got.OutputURL != "videos/job-1/output.mp4" {
		t.Fatalf("output key mismatch: %q", got.OutputURL)
	}
	if got.OutputPublic == "" {
		t.Fatal("expected a public output URL")
	}
	if !bytes.Equal(store.objects["videos/job-1/output.mp4"], video) {
		t.Fatal("stored video does not match render output")
	}
}

func TestProcessJobTemplateMissing(t *testing.T) {
	job := &domain.Job{ID: "job-2", TemplateID: "nope", Status: domain.JobStatusQueued}
	jobs := newFakeJobs(job)
	o := newTestOrchestrator(jobs, &fakeTemplates{templates: map[string]*domain.Template{}}, newFakeStore(), "http://127.0.0.1:0", "sync")

	if err := o.ProcessJob(context.Background(), "job-2"); err != nil {
		t.Fatalf("ProcessJob returned error: %v", err)
	}

	got, _ := jobs.GetByID(context.Background(), "job-2")
	if got.Status != domain.JobStatusFailed {
		t.Fatalf("status mismatch: %s", got.Status)
	}
	if got.Error == nil || got.Error.Code != domain.ErrCodeRenderTriggerFailed {
		t.Fatalf("error mismatch: %+v", got.Error)
	}
}

func TestProcessJobBackendFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "composition not found"})
	}))
	defer backend.Close()

	job := &domain.Job{ID: "job-3", TemplateID: "tpl-1", Status: domain.JobStatusQueued}
	jobs := newFakeJobs(job)
	o := newTestOrchestrator(jobs, &fakeTemplates{templates: map[string]*domain.Template{"tpl-1": testTemplate()}}, newFakeStore(), backend.URL, "sync")

	if err := o.ProcessJob(context.Background(), "job-3"); err != nil {
		t.Fatalf("ProcessJob returned error: %v", err)
	}

	got, _ := jobs.GetByID(context.Background(), "job-3")
	if got.Status != domain.JobStatusFailed {
		t.Fatalf("status mismatch: %s", got.Status)
	}
	if got.Error == nil || got.Error.Code != domain.ErrCodeRenderFailed {
		t.Fatalf("error mismatch: %+v", got.Error)
	}
	if got.OutputURL != "" || got.OutputPublic != "" {
		t.Fatal("failed job must not carry output fields")
	}
}

func TestProcessJobSkipsRedelivery(t *testing.T) {
	called := false
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer backend.Close()

	job := &domain.Job{ID: "job-4", TemplateID: "tpl-1", Status: domain.JobStatusRendering}
	jobs := newFakeJobs(job)
	o := newTestOrchestrator(jobs, &fakeTemplates{templates: map[string]*domain.Template{"tpl-1": testTemplate()}}, newFakeStore(), backend.URL, "sync")

	if err := o.ProcessJob(context.Background(), "job-4"); err != nil {
		t.Fatalf("ProcessJob returned error: %v", err)
	}
	if called {
		t.Fatal("backend must not be invoked for a redelivered job")
	}
	got, _ := jobs.GetByID(context.Background(), "job-4")
	if got.Status != domain.JobStatusRendering {
		t.Fatalf("status must be unchanged, got %s", got.Status)
	}
}

func TestProcessJobAsyncRecordsRenderID(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/renders" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			CustomData map[string]string `json:"customData"`
			WebhookURL string            `json:"webhookUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.CustomData["jobId"] != "job-5" {
			t.Errorf("customData mismatch: %#v", body.CustomData)
		}
		if body.WebhookURL == "" {
			t.Error("async start must carry the webhook url")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"renderId": "r-99", "bucketName": "remotion-renders"})
	}))
	defer backend.Close()

	job := &domain.Job{ID: "job-5", TemplateID: "tpl-1", Status: domain.JobStatusQueued}
	jobs := newFakeJobs(job)
	o := newTestOrchestrator(jobs, &fakeTemplates{templates: map[string]*domain.Template{"tpl-1": testTemplate()}}, newFakeStore(), backend.URL, "async")

	if err := o.ProcessJob(context.Background(), "job-5"); err != nil {
		t.Fatalf("ProcessJob returned error: %v", err)
	}

	got, _ := jobs.GetByID(context.Background(), "job-5")
	if got.Status != domain.JobStatusRendering {
		t.Fatalf("status mismatch: %s", got.Status)
	}
	if got.Metadata["remotionRenderId"] != "r-99" {
		t.Fatalf("metadata mismatch: %#v", got.Metadata)
	}
}

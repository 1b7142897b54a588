package domain

import (
	"encoding/json"
	"time"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRendering JobStatus = "rendering"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Error codes recorded on failed jobs.
const (
	ErrCodeRenderTriggerFailed = "render_trigger_failed"
	ErrCodeRenderFailed        = "render_failed"
	ErrCodeRenderTimeout       = "render_timeout"
	ErrCodeWebhookHandler      = "webhook_handler_error"
)

// AssetMapping binds a concrete content value to a template slot for one
// job. Value is either a blob storage key, an external URL, or a literal
// text value depending on the slot kind.
type AssetMapping struct {
	SlotID string `json:"slotId"`
	Value  string `json:"value"`
	Kind   string `json:"type,omitempty"`
}

// JobError captures why a job failed.
type JobError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Job is one user-initiated request to render a video from a template and a
// set of asset mappings. Status moves queued -> rendering -> completed or
// failed; queued -> failed is also valid. Terminal states never change.
type Job struct {
	ID            string
	TemplateID    string
	AssetMappings []AssetMapping
	Status        JobStatus
	Progress      int
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	OutputURL     string
	OutputPublic  string
	Error         *JobError
	Metadata      map[string]any
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// CanTransition reports whether moving from the job's current status to the
// target is a legal edge of the lifecycle.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusQueued:
		return to == JobStatusRendering || to == JobStatusFailed
	case JobStatusRendering:
		return to == JobStatusCompleted || to == JobStatusFailed
	default:
		return false
	}
}

// MappingsJSON serializes asset mappings for persistence.
func (j *Job) MappingsJSON() []byte {
	b, err := json.Marshal(j.AssetMappings)
	if err != nil {
		return []byte("[]")
	}
	return b
}

package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Completion is the normalized render-complete notification. The backend has
// shipped two incompatible wire shapes over time; ParseCompletion folds both
// into this one struct so the webhook handler never sees backend-specific
// payloads.
type Completion struct {
	JobID     string
	Success   bool
	OutputURL string
	RenderID  string
	Metadata  map[string]any
	Errors    []string
}

// FirstError returns the first reported error, or a generic fallback.
func (c *Completion) FirstError() string {
	for _, e := range c.Errors {
		if strings.TrimSpace(e) != "" {
			return e
		}
	}
	return "Rendering failed"
}

// completionWire holds the union of every field either webhook shape carries.
type completionWire struct {
	// Flat shape: {jobId, videoUrl, status, error?, renderTime?}
	JobID      string          `json:"jobId"`
	VideoURL   string          `json:"videoUrl"`
	Status     string          `json:"status"`
	Error      string          `json:"error"`
	RenderTime json.RawMessage `json:"renderTime"`

	// Lambda shape: {customData:{jobId}, outputFile?, renderId, renderMetadata?, errors?[]}
	CustomData struct {
		JobID string `json:"jobId"`
	} `json:"customData"`
	OutputFile     string            `json:"outputFile"`
	RenderID       string            `json:"renderId"`
	RenderMetadata map[string]any    `json:"renderMetadata"`
	Errors         []json.RawMessage `json:"errors"`
}

// ParseCompletion decodes a webhook body of either wire shape. A payload
// without a job correlation id yields ErrNoJobID.
func ParseCompletion(body []byte) (*Completion, error) {
	var wire completionWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode completion payload: %w", err)
	}

	c := &Completion{
		JobID:    wire.JobID,
		RenderID: wire.RenderID,
		Metadata: map[string]any{},
	}
	if c.JobID == "" {
		c.JobID = wire.CustomData.JobID
	}
	if c.JobID == "" {
		return nil, ErrNoJobID
	}

	for k, v := range wire.RenderMetadata {
		c.Metadata[k] = v
	}
	if len(wire.RenderTime) > 0 && string(wire.RenderTime) != "null" {
		var renderTime any
		if err := json.Unmarshal(wire.RenderTime, &renderTime); err == nil {
			c.Metadata["renderTime"] = renderTime
		}
	}

	for _, raw := range wire.Errors {
		c.Errors = append(c.Errors, decodeErrorEntry(raw))
	}
	if wire.Error != "" {
		c.Errors = append(c.Errors, wire.Error)
	}

	switch {
	case wire.OutputFile != "" && len(wire.Errors) == 0:
		c.Success = true
		c.OutputURL = wire.OutputFile
	case wire.Status == "success" && wire.VideoURL != "":
		c.Success = true
		c.OutputURL = wire.VideoURL
	}

	return c, nil
}

// decodeErrorEntry tolerates both bare strings and {message} objects.
func decodeErrorEntry(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}

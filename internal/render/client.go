package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNoJobID marks a completion payload without a job correlation id.
	ErrNoJobID = errors.New("render: completion payload has no job id")
)

// BackendError is a failure reported by the render backend itself, as
// opposed to a transport failure reaching it.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("render backend: %s (status %d)", e.Message, e.StatusCode)
}

// InvokeRequest carries everything the backend needs to render one job.
type InvokeRequest struct {
	JobID       string
	ServeURL    string
	Composition string
	InputProps  map[string]string
}

// SyncResult is the inline result of a synchronous render call.
type SyncResult struct {
	Video []byte
	Size  int64
}

// AsyncStart is the immediate response of an asynchronous render start; the
// final result arrives later via the completion webhook.
type AsyncStart struct {
	RenderID string `json:"renderId"`
	Location string `json:"bucketName"`
}

// Client invokes the out-of-process render backend over HTTP.
type Client struct {
	http       *http.Client
	baseURL    string
	webhookURL string
}

// NewClient builds a render client. webhookURL is where the backend posts
// asynchronous completions; it is unused in synchronous mode.
func NewClient(baseURL, webhookURL string, timeout time.Duration) *Client {
	return &Client{
		http:       &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		webhookURL: webhookURL,
	}
}

type invokeBody struct {
	ServeURL    string            `json:"serveUrl"`
	Composition string            `json:"composition"`
	InputProps  map[string]string `json:"inputProps"`
	WebhookURL  string            `json:"webhookUrl,omitempty"`
	CustomData  map[string]string `json:"customData,omitempty"`
}

// RenderSync blocks until the backend finishes and returns the video bytes.
func (c *Client) RenderSync(ctx context.Context, req InvokeRequest) (*SyncResult, error) {
	respBody, status, err := c.post(ctx, "/render", invokeBody{
		ServeURL:    req.ServeURL,
		Composition: req.Composition,
		InputProps:  req.InputProps,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool   `json:"success"`
		Video   string `json:"video"`
		Size    int64  `json:"size"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode render response: %w", err)
	}
	if status != http.StatusOK || !result.Success {
		msg := result.Error
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return nil, &BackendError{StatusCode: status, Message: msg}
	}

	video, err := base64.StdEncoding.DecodeString(result.Video)
	if err != nil {
		return nil, fmt.Errorf("decode rendered video: %w", err)
	}
	return &SyncResult{Video: video, Size: result.Size}, nil
}

// RenderStart kicks off an asynchronous render and returns immediately with
// the backend's render identifier.
func (c *Client) RenderStart(ctx context.Context, req InvokeRequest) (*AsyncStart, error) {
	respBody, status, err := c.post(ctx, "/renders", invokeBody{
		ServeURL:    req.ServeURL,
		Composition: req.Composition,
		InputProps:  req.InputProps,
		WebhookURL:  c.webhookURL,
		CustomData:  map[string]string{"jobId": req.JobID},
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusAccepted {
		return nil, &BackendError{StatusCode: status, Message: strings.TrimSpace(string(respBody))}
	}

	var start AsyncStart
	if err := json.Unmarshal(respBody, &start); err != nil {
		return nil, fmt.Errorf("decode render start response: %w", err)
	}
	if start.RenderID == "" {
		return nil, &BackendError{StatusCode: status, Message: "render start response missing renderId"}
	}
	return &start, nil
}

// FetchArtifact opens the rendered artifact for reading, following
// redirects. The caller must close the body; it is streamed, not buffered,
// because output size is unbounded.
func (c *Client) FetchArtifact(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build artifact request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch artifact: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, 0, &BackendError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(snippet))}
	}
	return resp.Body, resp.ContentLength, nil
}

func (c *Client) post(ctx context.Context, path string, body invokeBody) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal render request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("call render backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read render response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

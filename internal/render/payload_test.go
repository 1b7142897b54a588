package render

import (
	"errors"
	"testing"
)

func TestParseCompletionLambdaSuccess(t *testing.T) {
	body := []byte(`{
		"customData": {"jobId": "job-1"},
		"outputFile": "https://renders.example.com/out/abc.mp4",
		"renderId": "r-42",
		"renderMetadata": {"codec": "h264"}
	}`)

	c, err := ParseCompletion(body)
	if err != nil {
		t.Fatalf("ParseCompletion returned error: %v", err)
	}
	if !c.Success {
		t.Fatal("expected success")
	}
	if c.JobID != "job-1" {
		t.Fatalf("JobID mismatch: %q", c.JobID)
	}
	if c.OutputURL != "https://renders.example.com/out/abc.mp4" {
		t.Fatalf("OutputURL mismatch: %q", c.OutputURL)
	}
	if c.RenderID != "r-42" {
		t.Fatalf("RenderID mismatch: %q", c.RenderID)
	}
	if c.Metadata["codec"] != "h264" {
		t.Fatalf("Metadata mismatch: %#v", c.Metadata)
	}
}

func TestParseCompletionLambdaFailure(t *testing.T) {
	body := []byte(`{"customData": {"jobId": "job-2"}, "renderId": "r-7", "errors": ["boom"]}`)

	c, err := ParseCompletion(body)
	if err != nil {
		t.Fatalf("ParseCompletion returned error: %v", err)
	}
	if c.Success {
		t.Fatal("expected failure")
	}
	if c.FirstError() != "boom" {
		t.Fatalf("FirstError mismatch: %q", c.FirstError())
	}
}

func TestParseCompletionFlatShape(t *testing.T) {
	body := []byte(`{"jobId": "job-3", "videoUrl": "https://s3.example.com/v.mp4", "status": "success", "renderTime": 153}`)

	c, err := ParseCompletion(body)
	if err != nil {
		t.Fatalf("ParseCompletion returned error: %v", err)
	}
	if !c.Success || c.OutputURL != "https://s3.example.com/v.mp4" {
		t.Fatalf("unexpected completion: %+v", c)
	}
	if c.Metadata["renderTime"] != float64(153) {
		t.Fatalf("renderTime metadata mismatch: %#v", c.Metadata["renderTime"])
	}
}

func TestParseCompletionFlatFailure(t *testing.T) {
	body := []byte(`{"jobId": "job-4", "status": "error", "error": "chromium crashed"}`)

	c, err := ParseCompletion(body)
	if err != nil {
		t.Fatalf("ParseCompletion returned error: %v", err)
	}
	if c.Success {
		t.Fatal("expected failure")
	}
	if c.FirstError() != "chromium crashed" {
		t.Fatalf("FirstError mismatch: %q", c.FirstError())
	}
}

func TestParseCompletionMissingJobID(t *testing.T) {
	if _, err := ParseCompletion([]byte(`{"videoUrl": "x", "status": "success"}`)); !errors.Is(err, ErrNoJobID) {
		t.Fatalf("expected ErrNoJobID, got %v", err)
	}
}

func TestParseCompletionErrorObjects(t *testing.T) {
	body := []byte(`{"customData": {"jobId": "job-5"}, "errors": [{"message": "timeout in frame 12"}]}`)

	c, err := ParseCompletion(body)
	if err != nil {
		t.Fatalf("ParseCompletion returned error: %v", err)
	}
	if c.FirstError() != "timeout in frame 12" {
		t.Fatalf("FirstError mismatch: %q", c.FirstError())
	}
}

func TestFirstErrorFallback(t *testing.T) {
	c := &Completion{}
	if c.FirstError() != "Rendering failed" {
		t.Fatalf("fallback mismatch: %q", c.FirstError())
	}
}

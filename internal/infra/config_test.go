package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("RENDER_MODE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.RenderMode != "sync" {
		t.Fatalf("RenderMode mismatch: got %q want sync", cfg.RenderMode)
	}
	if cfg.InputURLTTL != time.Hour {
		t.Fatalf("InputURLTTL mismatch: got %v want 1h", cfg.InputURLTTL)
	}
	if cfg.OutputURLTTL != 7*24*time.Hour {
		t.Fatalf("OutputURLTTL mismatch: got %v want 168h", cfg.OutputURLTTL)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigRejectsUnknownRenderMode(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("RENDER_MODE", "batch")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown render mode")
	}
}

func TestLoadConfigAsyncModeRequiresWebhookURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("RENDER_MODE", "async")
	t.Setenv("RENDER_WEBHOOK_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when async mode has no webhook url")
	}

	t.Setenv("RENDER_WEBHOOK_URL", "https://api.example.com/v1/renders/complete")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RenderMode != "async" {
		t.Fatalf("RenderMode mismatch: got %q want async", cfg.RenderMode)
	}
}

package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Store abstracts the blob store holding uploaded assets and rendered
// outputs. Keys are slash-separated relative paths.
type Store interface {
	// Put streams the object body into the store under key and returns the
	// canonical storage key. size may be -1 when unknown.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	// PresignedGetURL returns an externally fetchable URL for the key,
	// valid for at most the given duration.
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// PublicURL returns a stable non-expiring URL for the key, or "" when
	// the store has no public endpoint configured.
	PublicURL(key string) string
}

// OutputKey is where a job's rendered video lands.
func OutputKey(jobID, ext string) string {
	return fmt.Sprintf("videos/%s/output.%s", jobID, strings.TrimPrefix(ext, "."))
}

// AssetKey is where an ingested asset lands.
func AssetKey(project, assetID string, ts int64, ext string) string {
	if project == "" {
		project = "default"
	}
	return fmt.Sprintf("assets/%s/original/%s_%d.%s", project, assetID, ts, strings.TrimPrefix(ext, "."))
}

// ContentTypeForKey guesses a MIME type from the key extension.
func ContentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".jpg"), strings.HasSuffix(key, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".webp"):
		return "image/webp"
	case strings.HasSuffix(key, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(key, ".mpg"):
		return "video/mpeg"
	case strings.HasSuffix(key, ".txt"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// ExtForMIME maps a MIME type onto a file extension.
func ExtForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "video/mp4":
		return "mp4"
	case "video/mpeg":
		return "mpg"
	case "text/plain":
		return "txt"
	default:
		return "bin"
	}
}

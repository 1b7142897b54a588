package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"golang.org/x/text/unicode/norm"
)

// maxImageDim bounds either side of an ingested image; larger uploads are
// downscaled before storage so the render backend never pulls oversized
// sources.
const maxImageDim = 4096

// AllowedMIME is the ingest allow-list.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"video/mp4":  true,
	"video/mpeg": true,
}

// Processed is the outcome of preprocessing one ingested asset.
type Processed struct {
	Data   []byte
	Width  int
	Height int
}

// Preprocess probes image dimensions and downscales anything larger than
// maxImageDim on a side. Videos pass through untouched; dimension probing
// for them needs a demuxer we deliberately do not carry.
func Preprocess(data []byte, mime string) (*Processed, error) {
	if !strings.HasPrefix(mime, "image/") {
		return &Processed{Data: data}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= maxImageDim && h <= maxImageDim {
		return &Processed{Data: data, Width: w, Height: h}, nil
	}

	resized := imaging.Fit(img, maxImageDim, maxImageDim, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, formatForMIME(mime)); err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}
	rb := resized.Bounds()
	return &Processed{Data: buf.Bytes(), Width: rb.Dx(), Height: rb.Dy()}, nil
}

func formatForMIME(mime string) imaging.Format {
	if mime == "image/png" {
		return imaging.PNG
	}
	return imaging.JPEG
}

// DisplayName turns an uploaded filename into a gallery display name:
// NFC-normalized, extension stripped, separators spaced, control runes
// dropped.
func DisplayName(filename string) string {
	name := filename
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	name = norm.NFC.String(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsControl(r):
		case r == '_' || r == '-':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if out == "" {
		return "untitled"
	}
	return out
}

// SanitizeFilename strips path components and anything outside a
// conservative character set so a hostile filename cannot shape storage
// keys.
func SanitizeFilename(filename string) string {
	name := filename
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "asset"
	}
	return out
}

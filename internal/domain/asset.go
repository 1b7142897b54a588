package domain

import "time"

// AssetKind enumerates asset content kinds.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
)

// AssetSource identifies how an asset entered the gallery.
type AssetSource string

const (
	AssetSourceUpload AssetSource = "upload"
	AssetSourceBridge AssetSource = "bridge"
)

// Asset is a gallery item available for slot mapping. Assets are immutable
// after creation and never deleted by the system.
type Asset struct {
	ID          string
	DisplayName string
	Kind        AssetKind
	StorageKey  string
	MIME        string
	Bytes       int64
	Width       int
	Height      int
	Source      AssetSource
	Country     string
	CreatedAt   time.Time
}

// KindForMIME maps a MIME type onto an asset kind.
func KindForMIME(mime string) AssetKind {
	if len(mime) >= 6 && mime[:6] == "image/" {
		return AssetKindImage
	}
	return AssetKindVideo
}

package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
	"github.com/ivanivanho-work/template-stamper/internal/ingest"
	"github.com/ivanivanho-work/template-stamper/internal/storage"
)

const (
	ingestProtocol = "mcp-v1"
	maxAssetBytes  = 100 << 20
)

type ingestAsset struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
	Type     string `json:"type"`
}

type ingestRequest struct {
	Protocol string        `json:"protocol"`
	Assets   []ingestAsset `json:"assets"`
	Metadata struct {
		Source  string `json:"source"`
		Project string `json:"project"`
	} `json:"metadata"`
}

// IngestAssets is the bridge endpoint external tooling pushes media
// through. Each asset arrives base64-encoded with its declared MIME type;
// the batch is all-or-nothing only per asset, not per request: one bad
// asset fails the whole request before any upload happens.
func (a *App) IngestAssets(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_argument", "invalid payload")
		return
	}
	if req.Protocol != ingestProtocol {
		a.error(w, http.StatusBadRequest, "invalid_argument", "unsupported protocol, expected "+ingestProtocol)
		return
	}
	if len(req.Assets) == 0 {
		a.error(w, http.StatusBadRequest, "invalid_argument", "assets must not be empty")
		return
	}

	type decoded struct {
		in   ingestAsset
		data []byte
	}
	batch := make([]decoded, 0, len(req.Assets))
	for i, in := range req.Assets {
		if in.Filename == "" || in.Data == "" {
			a.error(w, http.StatusBadRequest, "invalid_argument", "assets["+strconv.Itoa(i)+"] needs filename and data")
			return
		}
		if !ingest.AllowedMIME[in.Type] {
			a.error(w, http.StatusBadRequest, "invalid_argument", "assets["+strconv.Itoa(i)+"] has unsupported type "+in.Type)
			return
		}
		data, err := base64.StdEncoding.DecodeString(in.Data)
		if err != nil {
			a.error(w, http.StatusBadRequest, "invalid_argument", "assets["+strconv.Itoa(i)+"] is not valid base64")
			return
		}
		if len(data) > maxAssetBytes {
			a.error(w, http.StatusBadRequest, "invalid_argument", "assets["+strconv.Itoa(i)+"] exceeds the 100MB limit")
			return
		}
		batch = append(batch, decoded{in: in, data: data})
	}

	project := req.Metadata.Project
	country := a.countryFor(r)

	results := make([]map[string]any, 0, len(batch))
	for _, item := range batch {
		processed, err := ingest.Preprocess(item.data, item.in.Type)
		if err != nil {
			a.error(w, http.StatusBadRequest, "invalid_argument", "could not decode "+item.in.Filename)
			return
		}

		assetID := uuid.NewString()
		key := storage.AssetKey(project, assetID, time.Now().Unix(), storage.ExtForMIME(item.in.Type))
		if _, err := a.Store.Put(r.Context(), key, bytes.NewReader(processed.Data), int64(len(processed.Data)), item.in.Type); err != nil {
			a.Logger.Error().Err(err).Str("key", key).Msg("asset upload failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to store asset")
			return
		}

		asset := &domain.Asset{
			ID:          assetID,
			DisplayName: ingest.DisplayName(ingest.SanitizeFilename(item.in.Filename)),
			Kind:        domain.KindForMIME(item.in.Type),
			StorageKey:  key,
			MIME:        item.in.Type,
			Bytes:       int64(len(processed.Data)),
			Width:       processed.Width,
			Height:      processed.Height,
			Source:      domain.AssetSourceBridge,
			Country:     country,
			CreatedAt:   time.Now().UTC(),
		}
		if err := a.Assets.Create(r.Context(), asset); err != nil {
			a.Logger.Error().Err(err).Str("asset_id", assetID).Msg("asset insert failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to record asset")
			return
		}

		results = append(results, map[string]any{
			"assetId":     asset.ID,
			"displayName": asset.DisplayName,
			"type":        string(asset.Kind),
			"storageKey":  asset.StorageKey,
			"publicUrl":   a.Store.PublicURL(asset.StorageKey),
		})
	}

	a.json(w, http.StatusOK, map[string]any{
		"success":        true,
		"protocol":       ingestProtocol,
		"assetsReceived": len(results),
		"assets":         results,
	})
}

func (a *App) ListAssets(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	assets, err := a.Assets.List(r.Context(), limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Msg("asset list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list assets")
		return
	}
	items := make([]map[string]any, 0, len(assets))
	for _, asset := range assets {
		items = append(items, map[string]any{
			"id":          asset.ID,
			"displayName": asset.DisplayName,
			"type":        string(asset.Kind),
			"mime":        asset.MIME,
			"bytes":       asset.Bytes,
			"width":       asset.Width,
			"height":      asset.Height,
			"source":      string(asset.Source),
			"country":     asset.Country,
			"publicUrl":   a.Store.PublicURL(asset.StorageKey),
			"createdAt":   asset.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// countryFor tags ingested assets with the caller's country when a GeoIP
// database is configured; lookups are best-effort.
func (a *App) countryFor(r *http.Request) string {
	if a.Geo == nil {
		return ""
	}
	ip := r.Header.Get("X-Forwarded-For")
	if i := strings.Index(ip, ","); i >= 0 {
		ip = ip[:i]
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return ""
		}
		ip = host
	}
	code, err := a.Geo.CountryCode(ip)
	if err != nil {
		return ""
	}
	return code
}

package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
)

// Presigner is the slice of the blob store input assembly needs: turning an
// internal storage key into a URL the render backend can fetch without our
// credentials.
type Presigner interface {
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// BuildInputProps flattens a job's asset mappings into the slot-id -> value
// map the render backend consumes. Mappings that reference a slot the
// template does not define are skipped, not failed: a stale mapping must not
// sink the whole job. Values resolve as follows: text slots and external
// URLs pass through unchanged; anything else is treated as an internal
// storage key and presigned for the given validity window.
func BuildInputProps(ctx context.Context, tpl *domain.Template, mappings []domain.AssetMapping, signer Presigner, ttl time.Duration, logger zerolog.Logger) (map[string]string, error) {
	props := make(map[string]string, len(mappings))
	for _, m := range mappings {
		slot, ok := tpl.SlotByID(m.SlotID)
		if !ok {
			logger.Debug().Str("slot_id", m.SlotID).Str("template_id", tpl.ID).Msg("skipping mapping with unknown slot")
			continue
		}
		if slot.Kind == domain.SlotKindText || isExternalURL(m.Value) {
			props[slot.ID] = m.Value
			continue
		}
		signed, err := signer.PresignedGetURL(ctx, m.Value, ttl)
		if err != nil {
			return nil, fmt.Errorf("presign slot %s: %w", slot.ID, err)
		}
		props[slot.ID] = signed
	}
	return props, nil
}

func isExternalURL(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

package domain

import "time"

// TemplateStatus enumerates template visibility states.
type TemplateStatus string

const (
	TemplateStatusActive   TemplateStatus = "active"
	TemplateStatusInactive TemplateStatus = "inactive"
)

// SlotKind enumerates the content kinds a template slot accepts.
type SlotKind string

const (
	SlotKindImage SlotKind = "image"
	SlotKindVideo SlotKind = "video"
	SlotKindText  SlotKind = "text"
)

// Slot is a named placeholder inside a template. Constraints are advisory;
// the render backend is the final arbiter of what it accepts.
type Slot struct {
	ID          string   `json:"id"`
	Kind        SlotKind `json:"kind"`
	Required    bool     `json:"required"`
	AspectRatio string   `json:"aspectRatio,omitempty"`
	MinWidth    int      `json:"minWidth,omitempty"`
	MinHeight   int      `json:"minHeight,omitempty"`
	MaxLength   int      `json:"maxLength,omitempty"`
}

// Template describes one renderable video composition: where the bundle is
// served from, which composition to render, and the slots a job must fill.
// Templates are treated as immutable once a job references them.
type Template struct {
	ID            string
	Name          string
	Version       int
	CompositionID string
	ServeURL      string
	Slots         []Slot
	Status        TemplateStatus
	CreatedAt     time.Time
}

// SlotByID returns the slot with the given id, or false when the template
// has no such slot.
func (t *Template) SlotByID(id string) (Slot, bool) {
	for _, s := range t.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return Slot{}, false
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
)

func templateView(tpl *domain.Template) map[string]any {
	return map[string]any{
		"id":            tpl.ID,
		"name":          tpl.Name,
		"version":       tpl.Version,
		"compositionId": tpl.CompositionID,
		"serveUrl":      tpl.ServeURL,
		"slots":         tpl.Slots,
		"status":        string(tpl.Status),
		"createdAt":     tpl.CreatedAt,
	}
}

func (a *App) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := a.Templates.ListActive(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("template list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list templates")
		return
	}
	items := make([]map[string]any, 0, len(templates))
	for i := range templates {
		items = append(items, templateView(&templates[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"templates": items})
}

func (a *App) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tpl, err := a.Templates.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "template not found")
			return
		}
		a.Logger.Error().Err(err).Str("template_id", id).Msg("template load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load template")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"template": templateView(tpl)})
}

type createTemplateRequest struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Version       int           `json:"version"`
	CompositionID string        `json:"compositionId"`
	ServeURL      string        `json:"serveUrl"`
	Slots         []domain.Slot `json:"slots"`
}

func (req *createTemplateRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.CompositionID == "" {
		return "compositionId is required"
	}
	if req.ServeURL == "" {
		return "serveUrl is required"
	}
	if len(req.Slots) == 0 {
		return "slots must not be empty"
	}
	for i, s := range req.Slots {
		if s.ID == "" {
			return "slots[" + strconv.Itoa(i) + "] needs an id"
		}
		switch s.Kind {
		case domain.SlotKindImage, domain.SlotKindVideo, domain.SlotKindText:
		default:
			return "slots[" + strconv.Itoa(i) + "] has unknown kind " + string(s.Kind)
		}
	}
	return ""
}

// CreateTemplate is the seeding path; templates are otherwise read-only
// through the API.
func (a *App) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_argument", "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		a.error(w, http.StatusBadRequest, "invalid_argument", msg)
		return
	}

	tpl := &domain.Template{
		ID:            req.ID,
		Name:          req.Name,
		Version:       req.Version,
		CompositionID: req.CompositionID,
		ServeURL:      req.ServeURL,
		Slots:         req.Slots,
		Status:        domain.TemplateStatusActive,
		CreatedAt:     time.Now().UTC(),
	}
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if tpl.Version <= 0 {
		tpl.Version = 1
	}
	if err := a.Templates.Create(r.Context(), tpl); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			a.error(w, http.StatusConflict, "conflict", "template id already exists")
			return
		}
		a.Logger.Error().Err(err).Msg("template insert failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create template")
		return
	}
	a.json(w, http.StatusCreated, map[string]any{"template": templateView(tpl)})
}

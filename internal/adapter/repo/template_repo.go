package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
	"github.com/ivanivanho-work/template-stamper/internal/infra"
	"github.com/ivanivanho-work/template-stamper/internal/sqlinline"
)

// TemplateRepositoryPG implements domain.TemplateRepository using PostgreSQL.
type TemplateRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewTemplateRepository constructs a new template repository instance.
func NewTemplateRepository(sqlx infra.SQLExecutor) *TemplateRepositoryPG {
	return &TemplateRepositoryPG{sql: sqlx}
}

// Create inserts a template definition. A duplicate id surfaces
// domain.ErrConflict.
func (r *TemplateRepositoryPG) Create(ctx context.Context, tpl *domain.Template) error {
	slotsJSON, err := json.Marshal(tpl.Slots)
	if err != nil {
		return fmt.Errorf("marshal slots: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertTemplate,
		tpl.ID,
		tpl.Name,
		tpl.Version,
		tpl.CompositionID,
		tpl.ServeURL,
		slotsJSON,
		tpl.Status,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrConflict
	}
	return err
}

// GetByID fetches a template by its identifier.
func (r *TemplateRepositoryPG) GetByID(ctx context.Context, templateID string) (*domain.Template, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectTemplate, templateID)
	tpl, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return tpl, nil
}

// ListActive returns active templates ordered by creation time descending.
func (r *TemplateRepositoryPG) ListActive(ctx context.Context) ([]domain.Template, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListActiveTemplates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []domain.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tpl)
	}
	return templates, rows.Err()
}

func scanTemplate(row pgx.Row) (*domain.Template, error) {
	var (
		tpl       domain.Template
		slotsJSON []byte
	)
	if err := row.Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Version,
		&tpl.CompositionID,
		&tpl.ServeURL,
		&slotsJSON,
		&tpl.Status,
		&tpl.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(slotsJSON) > 0 {
		if err := json.Unmarshal(slotsJSON, &tpl.Slots); err != nil {
			return nil, fmt.Errorf("decode slots: %w", err)
		}
	}
	return &tpl, nil
}

var _ domain.TemplateRepository = (*TemplateRepositoryPG)(nil)

package repo

import (
	"context"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
	"github.com/ivanivanho-work/template-stamper/internal/infra"
	"github.com/ivanivanho-work/template-stamper/internal/sqlinline"
)

// AssetRepositoryPG implements domain.AssetRepository using PostgreSQL.
type AssetRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewAssetRepository constructs a new asset repository instance.
func NewAssetRepository(sqlx infra.SQLExecutor) *AssetRepositoryPG {
	return &AssetRepositoryPG{sql: sqlx}
}

// Create inserts a gallery asset record.
func (r *AssetRepositoryPG) Create(ctx context.Context, asset *domain.Asset) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertAsset,
		asset.ID,
		asset.DisplayName,
		asset.Kind,
		asset.StorageKey,
		asset.MIME,
		asset.Bytes,
		asset.Width,
		asset.Height,
		asset.Source,
		asset.Country,
	)
	return err
}

// List returns gallery assets ordered by creation time descending.
func (r *AssetRepositoryPG) List(ctx context.Context, limit, offset int) ([]domain.Asset, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListAssets, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(
			&asset.ID,
			&asset.DisplayName,
			&asset.Kind,
			&asset.StorageKey,
			&asset.MIME,
			&asset.Bytes,
			&asset.Width,
			&asset.Height,
			&asset.Source,
			&asset.Country,
			&asset.CreatedAt,
		); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

var _ domain.AssetRepository = (*AssetRepositoryPG)(nil)

package repo

import (
	"context"

	"storyboard/internal/domain"
	"storyboard/internal/infra"
	"storyboard/internal/sqlinline"
)

// AssetRepositoryPG implements domain.AssetRepository using PostgreSQL.
type AssetRepositoryPG struct {
	db infra.SQLExecutor
}

// NewAssetRepository constructs a new asset repository instance.
func NewAssetRepository(db infra.SQLExecutor) *AssetRepositoryPG {
	return &AssetRepositoryPG{db: db}
}

// List returns all board assets in upload order.
func (r *AssetRepositoryPG) List(ctx context.Context) ([]domain.Asset, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListBoardAssets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(&asset.ID, &asset.Type, &asset.DataURL, &asset.Filename, &asset.Locked, &asset.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

// Save upserts one board asset.
func (r *AssetRepositoryPG) Save(ctx context.Context, asset *domain.Asset) error {
	_, err := r.db.Exec(ctx, sqlinline.QUpsertBoardAsset,
		asset.ID,
		asset.Type,
		asset.DataURL,
		asset.Filename,
		asset.Locked,
	)
	return err
}

// Delete removes one board asset.
func (r *AssetRepositoryPG) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, sqlinline.QDeleteBoardAsset, id)
	return err
}

var _ domain.AssetRepository = (*AssetRepositoryPG)(nil)

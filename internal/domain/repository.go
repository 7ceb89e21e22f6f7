package domain

import "context"

// SceneRepository persists storyboard scenes.
type SceneRepository interface {
	List(ctx context.Context) ([]Scene, error)
	Get(ctx context.Context, id string) (*Scene, error)
	SaveAll(ctx context.Context, scenes []Scene) error
	Clear(ctx context.Context) error
	Save(ctx context.Context, scene *Scene) error
	Delete(ctx context.Context, id string) error
}

// AssetRepository persists uploaded reference assets.
type AssetRepository interface {
	List(ctx context.Context) ([]Asset, error)
	Save(ctx context.Context, asset *Asset) error
	Delete(ctx context.Context, id string) error
}

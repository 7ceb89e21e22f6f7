package repo

import (
	"context"

	"storyboard/internal/domain"
	"storyboard/internal/infra"
	"storyboard/internal/sqlinline"
)

// SceneRepositoryPG implements domain.SceneRepository using PostgreSQL.
type SceneRepositoryPG struct {
	db infra.SQLExecutor
}

// NewSceneRepository constructs a new scene repository instance.
func NewSceneRepository(db infra.SQLExecutor) *SceneRepositoryPG {
	return &SceneRepositoryPG{db: db}
}

// List returns all scenes ordered by board position.
func (r *SceneRepositoryPG) List(ctx context.Context) ([]domain.Scene, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListScenes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []domain.Scene
	for rows.Next() {
		scene, err := scanScene(rows.Scan)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scenes, nil
}

// Get returns a single scene, or nil when it does not exist.
func (r *SceneRepositoryPG) Get(ctx context.Context, id string) (*domain.Scene, error) {
	row := r.db.QueryRow(ctx, sqlinline.QGetScene, id)
	scene, err := scanScene(row.Scan)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &scene, nil
}

// SaveAll replaces the persisted positions of the given scenes.
func (r *SceneRepositoryPG) SaveAll(ctx context.Context, scenes []domain.Scene) error {
	for i := range scenes {
		scenes[i].Position = i
		if err := r.Save(ctx, &scenes[i]); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every scene on the board.
func (r *SceneRepositoryPG) Clear(ctx context.Context) error {
	_, err := r.db.Exec(ctx, sqlinline.QDeleteAllScenes)
	return err
}

// Save upserts one scene.
func (r *SceneRepositoryPG) Save(ctx context.Context, scene *domain.Scene) error {
	idBase, remoteURL := "", ""
	if scene.ImageInfo != nil {
		idBase = scene.ImageInfo.IDBase
		remoteURL = scene.ImageInfo.URL
	}
	_, err := r.db.Exec(ctx, sqlinline.QUpsertScene,
		scene.ID,
		scene.Position,
		scene.ImagePrompt,
		scene.VideoPrompt,
		scene.DurationSeconds,
		scene.ImageURL,
		idBase,
		remoteURL,
		scene.VideoURL,
	)
	return err
}

// Delete removes one scene.
func (r *SceneRepositoryPG) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, sqlinline.QDeleteScene, id)
	return err
}

func scanScene(scan func(dest ...any) error) (domain.Scene, error) {
	var (
		scene     domain.Scene
		idBase    string
		remoteURL string
	)
	err := scan(
		&scene.ID,
		&scene.Position,
		&scene.ImagePrompt,
		&scene.VideoPrompt,
		&scene.DurationSeconds,
		&scene.ImageURL,
		&idBase,
		&remoteURL,
		&scene.VideoURL,
		&scene.CreatedAt,
		&scene.UpdatedAt,
	)
	if err != nil {
		return domain.Scene{}, err
	}
	if idBase != "" || remoteURL != "" {
		scene.ImageInfo = &domain.ImageServerInfo{IDBase: idBase, URL: remoteURL}
	}
	return scene, nil
}

var _ domain.SceneRepository = (*SceneRepositoryPG)(nil)

package videoauto

import (
	"context"
	"errors"
	"fmt"

	"storyboard/internal/domain"
)

// Catalog is the model inventory and remaining credit balance of an account.
type Catalog struct {
	Models  []domain.Model `json:"models"`
	Credits *float64       `json:"credits"`
}

// ListModels fetches the image and video model catalogs plus the account's
// credit balance. The two catalogs are merged and deduplicated by model id.
func (c *Client) ListModels(ctx context.Context) (*Catalog, error) {
	imageResp, err := c.post(ctx, "/models", map[string]any{"type": "image"})
	if err != nil {
		return nil, err
	}
	videoResp, err := c.post(ctx, "/models", map[string]any{"type": "video"})
	if err != nil {
		return nil, err
	}
	userResp, err := c.post(ctx, "/userInfo", map[string]any{})
	if err != nil {
		return nil, err
	}

	models := append(parseModelList(imageResp, "image"), parseModelList(videoResp, "video")...)
	if len(models) == 0 {
		return nil, errors.New("AIVideoAuto API returned no models. Please check your token and API status.")
	}

	seen := make(map[string]struct{}, len(models))
	unique := make([]domain.Model, 0, len(models))
	for _, m := range models {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		unique = append(unique, m)
	}

	catalog := &Catalog{Models: unique}
	if obj, ok := userResp.(map[string]any); ok {
		if credits, ok := obj["credits"].(float64); ok {
			catalog.Credits = &credits
		}
	}
	c.logger.Debug().Int("models", len(unique)).Msg("videoauto: catalog loaded")
	return catalog, nil
}

// parseModelList tolerates the catalog living under the response root, `data`,
// `models`, or `result`. Entries missing a model slug or display name are
// skipped.
func parseModelList(resp any, requestedType string) []domain.Model {
	var list []any
	switch v := resp.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, key := range []string{"data", "models", "result"} {
			if arr, ok := v[key].([]any); ok {
				list = arr
				break
			}
		}
	}

	models := make([]domain.Model, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		slug, _ := obj["model"].(string)
		name, _ := obj["name"].(string)
		if slug == "" || name == "" {
			continue
		}
		modelType, _ := obj["type"].(string)
		if modelType == "" {
			modelType = requestedType
		}
		description, _ := obj["description"].(string)
		if description == "" {
			description = fmt.Sprintf("Aivideoauto model for %s.", requestedType)
		}
		models = append(models, domain.Model{
			ID:          slug,
			Name:        name,
			Slug:        slug,
			Type:        modelType,
			Description: description,
		})
	}
	return models
}

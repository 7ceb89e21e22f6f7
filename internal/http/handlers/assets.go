package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storyboard/internal/domain"
)

func (a *App) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := a.Assets.List(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load assets")
		return
	}
	if assets == nil {
		assets = []domain.Asset{}
	}
	a.json(w, http.StatusOK, map[string]any{"assets": assets})
}

type assetUploadRequest struct {
	ID       string           `json:"asset_id,omitempty"`
	Type     domain.AssetType `json:"type"`
	DataURL  string           `json:"data_url"`
	Filename string           `json:"filename"`
	Locked   bool             `json:"locked"`
}

// SaveAsset uploads or updates one reference asset. Locked assets are passed
// as identity/style subjects into image generation.
func (a *App) SaveAsset(w http.ResponseWriter, r *http.Request) {
	var req assetUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if !strings.HasPrefix(req.DataURL, "data:") {
		a.error(w, http.StatusBadRequest, "bad_request", "data_url must be a data URL")
		return
	}
	switch req.Type {
	case domain.AssetProduct, domain.AssetCharacter, domain.AssetOther:
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported asset type")
		return
	}
	asset := domain.Asset{
		ID:       req.ID,
		Type:     req.Type,
		DataURL:  req.DataURL,
		Filename: req.Filename,
		Locked:   req.Locked,
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if err := a.Assets.Save(r.Context(), &asset); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist asset")
		return
	}
	a.json(w, http.StatusOK, asset)
}

func (a *App) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	if err := a.Assets.Delete(r.Context(), id); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete asset")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

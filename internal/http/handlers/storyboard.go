package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"storyboard/internal/domain"
	"storyboard/internal/providers/llm"
	"storyboard/pkg/zip"
)

type suggestionRequest struct {
	Scenario           domain.Scenario `json:"scenario"`
	ProductDescription string          `json:"product_description"`
}

// SuggestStoryboard replaces the board with a fresh LLM-generated storyboard.
func (a *App) SuggestStoryboard(w http.ResponseWriter, r *http.Request) {
	var req suggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Scenario == "" {
		req.Scenario = domain.ScenarioReview
	}
	assets, err := a.Assets.List(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load assets")
		return
	}
	provider, err := a.provider(r.Context())
	if err != nil {
		a.llmError(w, err)
		return
	}
	scenes, err := provider.GenerateStoryboard(r.Context(), llm.SuggestionRequest{
		Scenario:           req.Scenario,
		Assets:             assets,
		ProductDescription: req.ProductDescription,
		Language:           a.language(r),
	})
	if err != nil {
		a.llmError(w, err)
		return
	}
	if err := a.Scenes.Clear(r.Context()); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to reset storyboard")
		return
	}
	if err := a.Scenes.SaveAll(r.Context(), scenes); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist storyboard")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"scenes": scenes})
}

// NextScene appends one LLM-generated scene continuing the current board.
func (a *App) NextScene(w http.ResponseWriter, r *http.Request) {
	scenes, err := a.Scenes.List(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load storyboard")
		return
	}
	assets, err := a.Assets.List(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load assets")
		return
	}
	var req suggestionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	provider, err := a.provider(r.Context())
	if err != nil {
		a.llmError(w, err)
		return
	}
	prompts, err := provider.GenerateNextScene(r.Context(), llm.NextSceneRequest{
		Scenes:             scenes,
		Assets:             assets,
		ProductDescription: req.ProductDescription,
		Language:           a.language(r),
	})
	if err != nil {
		a.llmError(w, err)
		return
	}
	scene := llm.NewScene(prompts, len(scenes))
	if err := a.Scenes.Save(r.Context(), &scene); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist scene")
		return
	}
	a.json(w, http.StatusOK, scene)
}

// Archive exports every generated scene image as a zip download.
func (a *App) Archive(w http.ResponseWriter, r *http.Request) {
	scenes, err := a.Scenes.List(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load storyboard")
		return
	}
	var entries []zip.Asset
	for i, scene := range scenes {
		data, mime, ok := a.sceneImageBytes(r, scene)
		if !ok {
			continue
		}
		entries = append(entries, zip.Asset{
			Filename: fmt.Sprintf("scene-%02d%s", i+1, extensionFor(mime)),
			MIME:     mime,
			Data:     data,
		})
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no generated images to archive")
		return
	}
	archive := zip.ArchiveAssets(entries)
	if archive == nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="storyboard.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// sceneImageBytes recovers the stored image bytes for a scene, whether the
// scene carries a data URL or a key into the file store.
func (a *App) sceneImageBytes(r *http.Request, scene domain.Scene) ([]byte, string, bool) {
	url := scene.ImageURL
	if url == "" {
		return nil, "", false
	}
	if strings.HasPrefix(url, "data:") {
		meta, payload, found := strings.Cut(url, ",")
		if !found {
			return nil, "", false
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", false
		}
		mime := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
		return data, mime, true
	}
	base := ""
	if a.Cfg != nil {
		base = strings.TrimRight(a.Cfg.StorageBaseURL, "/")
	}
	key := strings.TrimLeft(strings.TrimPrefix(url, base), "/")
	data, err := a.Files.Read(r.Context(), key)
	if err != nil {
		a.Logger.Warn().Err(err).Str("scene_id", scene.ID).Msg("archive: missing stored image")
		return nil, "", false
	}
	return data, mimeForExtension(key), true
}

func extensionFor(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func mimeForExtension(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

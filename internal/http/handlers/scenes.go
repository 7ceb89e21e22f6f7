package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"storyboard/internal/domain"
	"storyboard/internal/providers/videoauto"
)

// cinematicScenePrefix frames every scene prompt before image generation.
const cinematicScenePrefix = "A high-quality, cinematic photo. Scene: %s"

func (a *App) ListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := a.Scenes.List(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load storyboard")
		return
	}
	if scenes == nil {
		scenes = []domain.Scene{}
	}
	a.json(w, http.StatusOK, map[string]any{"scenes": scenes})
}

type saveScenesRequest struct {
	Scenes []domain.Scene `json:"scenes"`
}

// SaveScenes persists the full board in the order the client sends it.
func (a *App) SaveScenes(w http.ResponseWriter, r *http.Request) {
	var req saveScenesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	for i := range req.Scenes {
		if strings.TrimSpace(req.Scenes[i].ID) == "" {
			a.error(w, http.StatusBadRequest, "bad_request", "every scene needs an id")
			return
		}
	}
	if err := a.Scenes.SaveAll(r.Context(), req.Scenes); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist storyboard")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"scenes": req.Scenes})
}

func (a *App) DeleteScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	if err := a.Scenes.Delete(r.Context(), id); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete scene")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type sceneImageRequest struct {
	Model       string             `json:"model"`
	AspectRatio domain.AspectRatio `json:"aspect_ratio"`
	// EditImage carries a base64 payload when the job reworks the scene's
	// current picture instead of generating from scratch.
	EditImage string `json:"edit_image,omitempty"`
	EditMIME  string `json:"edit_mime,omitempty"`
}

// SceneImage generates the keyframe image for one scene and persists both the
// image bytes and the server-side metadata needed for video generation.
func (a *App) SceneImage(w http.ResponseWriter, r *http.Request) {
	scene, ok := a.loadScene(w, r)
	if !ok {
		return
	}
	var req sceneImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.AspectRatio == "" {
		req.AspectRatio = domain.AspectLandscape
	}
	gen, err := a.generator(r.Context())
	if err != nil {
		a.generationError(w, err)
		return
	}
	assets, err := a.Assets.List(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load assets")
		return
	}
	var references []string
	for _, asset := range assets {
		if !asset.Locked {
			continue
		}
		if payload := asset.Base64(); payload != "" {
			references = append(references, payload)
		}
	}
	logger := a.Logger.With().Str("scene_id", scene.ID).Logger()
	result, err := gen.GenerateImage(r.Context(), videoauto.ImageRequest{
		Prompt:      fmt.Sprintf(cinematicScenePrefix, scene.ImagePrompt),
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		EditImage:   req.EditImage,
		EditMIME:    req.EditMIME,
		References:  references,
		OnProgress: func(message string) {
			logger.Info().Msg(message)
		},
	})
	if err != nil {
		a.generationError(w, err)
		return
	}
	scene.ImageURL = result.DataURL
	scene.ImageInfo = &result.Info
	if key, err := a.storeImage(r, scene.ID, result); err == nil && key != "" {
		scene.ImageURL = a.publicURL(key)
	}
	if err := a.Scenes.Save(r.Context(), scene); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist scene")
		return
	}
	a.json(w, http.StatusOK, scene)
}

type sceneVideoRequest struct {
	Model string `json:"model"`
}

// SceneVideo generates the video clip for one scene from its keyframe image.
func (a *App) SceneVideo(w http.ResponseWriter, r *http.Request) {
	scene, ok := a.loadScene(w, r)
	if !ok {
		return
	}
	var req sceneVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if !scene.ImageInfo.Valid() {
		a.error(w, http.StatusConflict, "missing_keyframe", "Cannot generate video: The scene is missing keyframe image information.")
		return
	}
	gen, err := a.generator(r.Context())
	if err != nil {
		a.generationError(w, err)
		return
	}
	logger := a.Logger.With().Str("scene_id", scene.ID).Logger()
	videoURL, err := gen.GenerateVideo(r.Context(), videoauto.VideoRequest{
		Prompt: scene.VideoPrompt,
		Model:  req.Model,
		Image:  *scene.ImageInfo,
		OnProgress: func(message string) {
			logger.Info().Msg(message)
		},
	})
	if err != nil {
		a.generationError(w, err)
		return
	}
	scene.VideoURL = videoURL
	if err := a.Scenes.Save(r.Context(), scene); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist scene")
		return
	}
	a.json(w, http.StatusOK, scene)
}

func (a *App) loadScene(w http.ResponseWriter, r *http.Request) (*domain.Scene, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return nil, false
	}
	scene, err := a.Scenes.Get(r.Context(), id)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load scene")
		return nil, false
	}
	if scene == nil {
		a.error(w, http.StatusNotFound, "not_found", "scene not found")
		return nil, false
	}
	return scene, true
}

// storeImage writes the generated bytes to the file store. Failures degrade
// to serving the data URL, so they are logged instead of surfaced.
func (a *App) storeImage(r *http.Request, sceneID string, result *videoauto.ImageResult) (string, error) {
	if a.Files == nil || len(result.Data) == 0 {
		return "", nil
	}
	key := fmt.Sprintf("scenes/%s%s", sceneID, extensionFor(result.MIME))
	stored, err := a.Files.Write(r.Context(), key, result.Data)
	if err != nil {
		a.Logger.Warn().Err(err).Str("scene_id", sceneID).Msg("failed to store scene image")
		return "", err
	}
	return stored, nil
}

func (a *App) publicURL(key string) string {
	base := ""
	if a.Cfg != nil {
		base = strings.TrimRight(a.Cfg.StorageBaseURL, "/")
	}
	return base + "/" + key
}

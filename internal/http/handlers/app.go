package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"storyboard/internal/domain"
	"storyboard/internal/infra"
	"storyboard/internal/infra/credentials"
	"storyboard/internal/middleware"
	"storyboard/internal/providers/llm"
	"storyboard/internal/providers/videoauto"
	"storyboard/internal/storage"
)

// Generator is the slice of the generation API client the handlers consume.
type Generator interface {
	GenerateImage(ctx context.Context, req videoauto.ImageRequest) (*videoauto.ImageResult, error)
	GenerateVideo(ctx context.Context, req videoauto.VideoRequest) (string, error)
	ListModels(ctx context.Context) (*videoauto.Catalog, error)
}

// FrameExtractor samples still frames from an uploaded video.
type FrameExtractor interface {
	Extract(ctx context.Context, video []byte, count int) ([]string, error)
}

type App struct {
	Logger      zerolog.Logger
	Cfg         *infra.Config
	Scenes      domain.SceneRepository
	Assets      domain.AssetRepository
	Credentials *credentials.Store
	// LLM builds the backend for a provider name and key on demand. Both
	// live in the credential store and can change between requests, so no
	// backend is pinned at boot.
	LLM *llm.Registry
	// Generator builds a generation API client bound to the given token.
	// Injected as a factory because the token lives in the credential store
	// and can change between requests.
	Generator func(token string) Generator
	Frames    FrameExtractor
	Files     *storage.FileStore
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// language maps the detected request locale onto a supported LLM language.
func (a *App) language(r *http.Request) domain.Language {
	return domain.NormalizeLanguage(middleware.LocaleFromContext(r.Context()))
}

// generator resolves the stored generation API token and binds a client to
// it. The configured env token is the fallback for tokenless deployments.
func (a *App) generator(ctx context.Context) (Generator, error) {
	token, err := a.Credentials.VideoAutoToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" && a.Cfg != nil {
		token = a.Cfg.VideoAutoToken
	}
	if token == "" {
		return nil, &videoauto.AuthError{Message: "AIVideoAuto API Token not found. Please provide your token."}
	}
	return a.Generator(token), nil
}

// provider resolves the active LLM backend and its API key at call time, so
// a credential posted through the tokens endpoint takes effect on the very
// next operation.
func (a *App) provider(ctx context.Context) (llm.Provider, error) {
	name, err := a.Credentials.LLMProvider(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" && a.Cfg != nil {
		name = a.Cfg.LLMProvider
	}
	name = llm.NormalizeProvider(name)
	key, err := a.llmKey(ctx, name)
	if err != nil {
		return nil, err
	}
	return a.LLM.Provider(name, key)
}

// llmKey resolves the stored API key for the named backend. The configured
// env key is the fallback for deployments that never post one.
func (a *App) llmKey(ctx context.Context, name string) (string, error) {
	var key string
	var err error
	switch name {
	case llm.ProviderOpenAI:
		key, err = a.Credentials.OpenAIAPIKey(ctx)
		if err == nil && key == "" && a.Cfg != nil {
			key = a.Cfg.OpenAIAPIKey
		}
	default:
		key, err = a.Credentials.GeminiAPIKey(ctx)
		if err == nil && key == "" && a.Cfg != nil {
			key = a.Cfg.GeminiAPIKey
		}
	}
	return key, err
}

// generationError maps the generation API error taxonomy onto HTTP statuses.
func (a *App) generationError(w http.ResponseWriter, err error) {
	var authErr *videoauto.AuthError
	if errors.As(err, &authErr) {
		a.error(w, http.StatusUnauthorized, "invalid_token", "Invalid AIVideoAuto API Token. Please enter a valid token and try again.")
		return
	}
	var policyErr *videoauto.PolicyViolationError
	if errors.As(err, &policyErr) {
		a.error(w, http.StatusUnprocessableEntity, "policy_violation", policyErr.Message)
		return
	}
	var timeoutErr *videoauto.TimeoutError
	if errors.As(err, &timeoutErr) {
		a.error(w, http.StatusGatewayTimeout, "timeout", timeoutErr.Message)
		return
	}
	a.error(w, http.StatusBadGateway, "generation_failed", err.Error())
}

// llmError maps LLM backend failures onto HTTP statuses.
func (a *App) llmError(w http.ResponseWriter, err error) {
	var keyErr *llm.KeyError
	if errors.As(err, &keyErr) {
		a.error(w, http.StatusUnauthorized, "invalid_key", keyErr.Message)
		return
	}
	a.error(w, http.StatusBadGateway, "llm_failed", err.Error())
}

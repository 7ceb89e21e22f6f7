package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"storyboard/internal/infra/credentials"
)

type tokensStatusResponse struct {
	VideoAuto   bool   `json:"videoauto"`
	Gemini      bool   `json:"gemini"`
	OpenAI      bool   `json:"openai"`
	LLMProvider string `json:"llm_provider"`
}

// TokensStatus reports which integrations are configured. Token values never
// leave the server.
func (a *App) TokensStatus(w http.ResponseWriter, r *http.Request) {
	resp := tokensStatusResponse{}
	if token, err := a.Credentials.VideoAutoToken(r.Context()); err == nil {
		resp.VideoAuto = token != ""
	}
	if key, err := a.Credentials.GeminiAPIKey(r.Context()); err == nil {
		resp.Gemini = key != ""
	}
	if key, err := a.Credentials.OpenAIAPIKey(r.Context()); err == nil {
		resp.OpenAI = key != ""
	}
	if name, err := a.Credentials.LLMProvider(r.Context()); err == nil && name != "" {
		resp.LLMProvider = name
	} else if a.Cfg != nil {
		resp.LLMProvider = a.Cfg.LLMProvider
	}
	a.json(w, http.StatusOK, resp)
}

type tokenUpdateRequest struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
}

// SetToken persists one integration credential or the LLM provider flag.
func (a *App) SetToken(w http.ResponseWriter, r *http.Request) {
	var req tokenUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	var err error
	switch strings.ToLower(strings.TrimSpace(req.Provider)) {
	case credentials.ProviderVideoAuto:
		err = a.Credentials.SetVideoAutoToken(r.Context(), req.Token)
	case credentials.ProviderGemini:
		err = a.Credentials.SetGeminiAPIKey(r.Context(), req.Token)
	case credentials.ProviderOpenAI:
		err = a.Credentials.SetOpenAIAPIKey(r.Context(), req.Token)
	case "llm_provider":
		err = a.Credentials.SetLLMProvider(r.Context(), req.Token)
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported provider")
		return
	}
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "saved"})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type paraphraseRequest struct {
	Prompt string `json:"prompt"`
}

type paraphraseResponse struct {
	Prompt string `json:"prompt"`
}

// Paraphrase rewrites a single video prompt while preserving its core action.
func (a *App) Paraphrase(w http.ResponseWriter, r *http.Request) {
	var req paraphraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt required")
		return
	}
	provider, err := a.provider(r.Context())
	if err != nil {
		a.llmError(w, err)
		return
	}
	text, err := provider.Paraphrase(r.Context(), req.Prompt, a.language(r))
	if err != nil {
		a.llmError(w, err)
		return
	}
	a.json(w, http.StatusOK, paraphraseResponse{Prompt: text})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"storyboard/internal/domain"
)

type chatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

type chatChunk struct {
	Text string `json:"text"`
}

// Chat streams the assistant reply as server-sent events. Each chunk is a
// JSON object on a data line; the stream terminates with [DONE].
func (a *App) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Messages) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "messages required")
		return
	}
	provider, err := a.provider(r.Context())
	if err != nil {
		a.llmError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	err = provider.StreamChat(r.Context(), req.Messages, func(text string) {
		payload, marshalErr := json.Marshal(chatChunk{Text: text})
		if marshalErr != nil {
			return
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	})
	if err != nil {
		// Headers are already on the wire; report the failure in-band.
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
	}
	_, _ = w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

package handlers

import (
	"io"
	"net/http"
	"strconv"
)

// maxAnalyzeUploadBytes bounds reference video uploads.
const maxAnalyzeUploadBytes = 64 << 20

// Analyze samples frames from an uploaded reference video and asks the LLM
// backend for a structured breakdown.
func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAnalyzeUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "expected multipart upload")
		return
	}
	file, _, err := r.FormFile("video")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "video file required")
		return
	}
	defer file.Close()
	video, err := io.ReadAll(io.LimitReader(file, maxAnalyzeUploadBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read upload")
		return
	}
	count, _ := strconv.Atoi(r.FormValue("frames"))
	frames, err := a.Frames.Extract(r.Context(), video, count)
	if err != nil {
		a.error(w, http.StatusUnprocessableEntity, "extraction_failed", err.Error())
		return
	}
	provider, err := a.provider(r.Context())
	if err != nil {
		a.llmError(w, err)
		return
	}
	analysis, err := provider.AnalyzeFrames(r.Context(), frames, a.language(r))
	if err != nil {
		a.llmError(w, err)
		return
	}
	a.json(w, http.StatusOK, analysis)
}

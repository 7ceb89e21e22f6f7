package videoauto

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"storyboard/internal/domain"
)

func TestGenerateVideoRequiresImageInfo(t *testing.T) {
	client := newTestClient(newScriptedTransport())
	_, err := client.GenerateVideo(context.Background(), VideoRequest{Prompt: "pan left", Model: "veo"})
	if err == nil || !strings.Contains(err.Error(), "missing keyframe image information") {
		t.Fatalf("error = %v, want missing image info error", err)
	}
}

func TestGenerateVideoPollsUntilDownloadURL(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueJSON("/create-video", map[string]any{"videoInfo": map[string]any{"id_base": "vid-1"}})
	transport.queueJSON("/video",
		map[string]any{"videoInfo": map[string]any{"status": "MEDIA_GENERATION_STATUS_PENDING"}},
		map[string]any{"videoInfo": map[string]any{"status": "MEDIA_GENERATION_STATUS_PROCESSING"}},
		map[string]any{"videoInfo": map[string]any{"status": "MEDIA_GENERATION_STATUS_SUCCESSFUL", "download_url": "https://cdn.example.com/clip.mp4"}},
	)
	client := newTestClient(transport)

	var messages []string
	url, err := client.GenerateVideo(context.Background(), VideoRequest{
		Prompt:     "slow pan across the harbor",
		Model:      "veo-fast",
		Image:      domain.ImageServerInfo{IDBase: "base-7", URL: "https://cdn.example.com/key.png"},
		OnProgress: func(m string) { messages = append(messages, m) },
	})
	if err != nil {
		t.Fatalf("GenerateVideo: %v", err)
	}
	if url != "https://cdn.example.com/clip.mp4" {
		t.Fatalf("url = %q", url)
	}
	if calls := transport.callCount("/video"); calls != 3 {
		t.Fatalf("status calls = %d, want 3", calls)
	}

	form := transport.lastForm("/create-video")
	if got := form.Get("privacy"); got != "PRIVATE" {
		t.Fatalf("privacy = %q, want PRIVATE", got)
	}
	if got := form.Get("translate_to_en"); got != "true" {
		t.Fatalf("translate_to_en = %q, want true", got)
	}
	var images []map[string]string
	if err := json.Unmarshal([]byte(form.Get("images")), &images); err != nil {
		t.Fatalf("decode images field: %v", err)
	}
	if len(images) != 1 || images[0]["id_base"] != "base-7" || images[0]["url"] != "https://cdn.example.com/key.png" {
		t.Fatalf("images = %v", images)
	}

	joined := strings.Join(messages, "|")
	for _, want := range []string{
		"Submitting video generation request...",
		"Video request sent. Waiting for processing to start...",
		"Checking video status...",
		"Video generated successfully!",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("progress %q missing from %q", want, joined)
		}
	}
}

func TestGenerateVideoGraceWindowExpires(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueJSON("/create-video", map[string]any{"videoInfo": map[string]any{"id_base": "vid-1"}})
	transport.queueJSON("/video", map[string]any{"videoInfo": map[string]any{"status": "MEDIA_GENERATION_STATUS_SUCCESSFUL"}})
	client := newTestClient(transport)

	var messages []string
	_, err := client.GenerateVideo(context.Background(), VideoRequest{
		Prompt:     "p",
		Model:      "veo",
		Image:      domain.ImageServerInfo{IDBase: "b", URL: "https://cdn.example.com/k.png"},
		OnProgress: func(m string) { messages = append(messages, m) },
	})
	if err == nil || err.Error() != "Video generation succeeded, but the download URL was not provided in time." {
		t.Fatalf("error = %v, want grace window error", err)
	}
	if !strings.Contains(strings.Join(messages, "|"), "Video processing finished. Waiting for download URL...") {
		t.Fatalf("grace window progress missing from %v", messages)
	}
}

func TestGenerateVideoURLArrivesWithinGrace(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueJSON("/create-video", map[string]any{"videoInfo": map[string]any{"id_base": "vid-1"}})
	transport.queueJSON("/video",
		map[string]any{"videoInfo": map[string]any{"status": "MEDIA_GENERATION_STATUS_SUCCESSFUL"}},
		map[string]any{"videoInfo": map[string]any{"status": "MEDIA_GENERATION_STATUS_SUCCESSFUL", "download_url": "https://cdn.example.com/late.mp4"}},
	)
	client := newTestClient(transport)

	url, err := client.GenerateVideo(context.Background(), VideoRequest{
		Prompt: "p",
		Model:  "veo",
		Image:  domain.ImageServerInfo{IDBase: "b", URL: "https://cdn.example.com/k.png"},
	})
	if err != nil {
		t.Fatalf("GenerateVideo: %v", err)
	}
	if url != "https://cdn.example.com/late.mp4" {
		t.Fatalf("url = %q", url)
	}
}

func TestGenerateVideoFailedStatus(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueJSON("/create-video", map[string]any{"videoInfo": map[string]any{"id_base": "vid-1"}})
	transport.queueJSON("/video", map[string]any{"videoInfo": map[string]any{"status": "MEDIA_GENERATION_STATUS_FAILED", "message": "render farm down"}})
	client := newTestClient(transport)

	_, err := client.GenerateVideo(context.Background(), VideoRequest{
		Prompt: "p",
		Model:  "veo",
		Image:  domain.ImageServerInfo{IDBase: "b", URL: "https://cdn.example.com/k.png"},
	})
	if err == nil || err.Error() != "render farm down" {
		t.Fatalf("error = %v, want server failure message", err)
	}
}

func TestGenerateVideoUnknownStatusFailsEvenWithURL(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueJSON("/create-video", map[string]any{"videoInfo": map[string]any{"id_base": "vid-1"}})
	transport.queueJSON("/video", map[string]any{"videoInfo": map[string]any{"status": "ODD", "download_url": "https://cdn.example.com/x.mp4"}})
	client := newTestClient(transport)

	_, err := client.GenerateVideo(context.Background(), VideoRequest{
		Prompt: "p",
		Model:  "veo",
		Image:  domain.ImageServerInfo{IDBase: "b", URL: "https://cdn.example.com/k.png"},
	})
	if err == nil || err.Error() != "Unknown video status: ODD" {
		t.Fatalf("error = %v, want unknown video status error", err)
	}
}

func TestGenerateVideoTimesOut(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueJSON("/create-video", map[string]any{"videoInfo": map[string]any{"id_base": "vid-1"}})
	transport.queueJSON("/video", map[string]any{"videoInfo": map[string]any{"status": "MEDIA_GENERATION_STATUS_PROCESSING"}})
	client := newTestClient(transport)

	_, err := client.GenerateVideo(context.Background(), VideoRequest{
		Prompt: "p",
		Model:  "veo",
		Image:  domain.ImageServerInfo{IDBase: "b", URL: "https://cdn.example.com/k.png"},
	})
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	if timeoutErr.Message != "Video generation timed out after 10 minutes." {
		t.Fatalf("message = %q", timeoutErr.Message)
	}
}

func TestSubmitVideoRejectionUsesServerMessage(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueJSON("/create-video", map[string]any{"message": "no credits left"})
	client := newTestClient(transport)

	_, err := client.GenerateVideo(context.Background(), VideoRequest{
		Prompt: "p",
		Model:  "veo",
		Image:  domain.ImageServerInfo{IDBase: "b", URL: "https://cdn.example.com/k.png"},
	})
	if err == nil || err.Error() != "no credits left" {
		t.Fatalf("error = %v, want server rejection message", err)
	}
}

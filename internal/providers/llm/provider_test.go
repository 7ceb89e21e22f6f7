package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"storyboard/internal/domain"
)

// captureTransport serves one scripted response per request and records every
// request body and URL for assertions.
type captureTransport struct {
	responses []stubResponse
	requests  []capturedRequest
}

type stubResponse struct {
	status int
	body   string
}

type capturedRequest struct {
	url  string
	body []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}
	c.requests = append(c.requests, capturedRequest{url: req.URL.String(), body: body})

	stub := stubResponse{status: http.StatusNotFound, body: `{"error":{"message":"no stub"}}`}
	if len(c.responses) > 0 {
		stub = c.responses[0]
		if len(c.responses) > 1 {
			c.responses = c.responses[1:]
		}
	}
	return &http.Response{
		StatusCode: stub.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(stub.body))),
	}, nil
}

func (c *captureTransport) lastBody(t *testing.T) map[string]any {
	t.Helper()
	if len(c.requests) == 0 {
		t.Fatal("no requests captured")
	}
	var decoded map[string]any
	if err := json.Unmarshal(c.requests[len(c.requests)-1].body, &decoded); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return decoded
}

// countingProvider records calls so dispatch tests can prove the unselected
// backend is never contacted.
type countingProvider struct {
	name  string
	calls int
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) GenerateStoryboard(ctx context.Context, req SuggestionRequest) ([]domain.Scene, error) {
	p.calls++
	return []domain.Scene{{ImagePrompt: "from " + p.name}}, nil
}

func (p *countingProvider) GenerateNextScene(ctx context.Context, req NextSceneRequest) (ScenePrompts, error) {
	p.calls++
	return ScenePrompts{}, nil
}

func (p *countingProvider) Paraphrase(ctx context.Context, prompt string, language domain.Language) (string, error) {
	p.calls++
	return prompt, nil
}

func (p *countingProvider) AnalyzeFrames(ctx context.Context, frames []string, language domain.Language) (*domain.VideoAnalysis, error) {
	p.calls++
	return &domain.VideoAnalysis{}, nil
}

func (p *countingProvider) StreamChat(ctx context.Context, messages []domain.ChatMessage, onChunk func(string)) error {
	p.calls++
	return nil
}

func TestRegistryBuildsSelectedBackendOnly(t *testing.T) {
	var built []string
	registry := NewRegistry(func(name, key string) (Provider, error) {
		built = append(built, name+":"+key)
		return &countingProvider{name: name}, nil
	})

	p, err := registry.Provider("openai", "sk-1")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p.Name() != ProviderOpenAI {
		t.Fatalf("name = %q, want openai", p.Name())
	}
	if len(built) != 1 || built[0] != "openai:sk-1" {
		t.Fatalf("built = %v, want only openai:sk-1", built)
	}
}

func TestRegistryDefaultsToGemini(t *testing.T) {
	registry := NewRegistry(func(name, key string) (Provider, error) {
		return &countingProvider{name: name}, nil
	})

	p, err := registry.Provider("", "g-key")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p.Name() != ProviderGemini {
		t.Fatalf("name = %q, want gemini", p.Name())
	}
}

func TestRegistryRejectsUnknownBackend(t *testing.T) {
	registry := NewRegistry(func(name, key string) (Provider, error) {
		t.Fatal("builder must not run for an unknown backend")
		return nil, nil
	})
	if _, err := registry.Provider("mistral", "k"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestRegistryRebuildsWhenKeyChanges(t *testing.T) {
	builds := 0
	registry := NewRegistry(func(name, key string) (Provider, error) {
		builds++
		return &countingProvider{name: name}, nil
	})

	first, err := registry.Provider(ProviderGemini, "old-key")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	again, err := registry.Provider(ProviderGemini, "old-key")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if first != again || builds != 1 {
		t.Fatalf("builds = %d, want the cached backend reused for an unchanged key", builds)
	}

	fresh, err := registry.Provider(ProviderGemini, "new-key")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if fresh == first || builds != 2 {
		t.Fatalf("builds = %d, want a fresh backend for the new key", builds)
	}
}

func TestDecodeStoryboard(t *testing.T) {
	raw := `{"scenes":[{"scene_number":1,"imagePrompt":"a","videoPrompt":"b"},{"scene_number":2,"imagePrompt":"c","videoPrompt":"d"}]}`
	scenes, err := decodeStoryboard(raw)
	if err != nil {
		t.Fatalf("decodeStoryboard: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(scenes))
	}
	if scenes[0].ID == "" || scenes[0].ID == scenes[1].ID {
		t.Fatalf("scene ids not unique: %q %q", scenes[0].ID, scenes[1].ID)
	}
	if scenes[1].Position != 1 {
		t.Fatalf("position = %d, want 1", scenes[1].Position)
	}
	if scenes[0].DurationSeconds != 5 {
		t.Fatalf("duration = %d, want 5", scenes[0].DurationSeconds)
	}
}

func TestDecodeStoryboardEmpty(t *testing.T) {
	if _, err := decodeStoryboard(`{"scenes":[]}`); err == nil {
		t.Fatal("expected error for empty storyboard")
	}
}

func TestExtractJSONFragment(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "clean", raw: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", raw: "```\n[1,2]\n```", want: `[1,2]`},
		{name: "prose wrapped", raw: `Here you go: {"a":1} enjoy`, want: `{"a":1}`},
		{name: "empty", raw: "  ", want: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := extractJSONFragment(tc.raw); got != tc.want {
				t.Fatalf("extractJSONFragment = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildStoryboardPromptFallsBackToReview(t *testing.T) {
	prompt := buildStoryboardPrompt(SuggestionRequest{
		Scenario: domain.ScenarioVlog,
		Assets:   []domain.Asset{{Type: domain.AssetProduct, Filename: "mug.png"}},
		Language: domain.LanguageEnglish,
	})
	if !strings.Contains(prompt, "Product Review Oriented") {
		t.Fatalf("prompt did not fall back to the review scenario:\n%s", prompt)
	}
	if strings.Contains(prompt, "POV") {
		t.Fatalf("vlog instruction leaked without a character asset")
	}
}

func TestBuildStoryboardPromptVlogWithCharacter(t *testing.T) {
	prompt := buildStoryboardPrompt(SuggestionRequest{
		Scenario: domain.ScenarioVlog,
		Assets: []domain.Asset{
			{Type: domain.AssetProduct, Filename: "mug.png"},
			{Type: domain.AssetCharacter, Filename: "maya.png"},
		},
		Language: domain.LanguageVietnamese,
	})
	if !strings.Contains(prompt, "First-Person POV Vlog Style") {
		t.Fatalf("vlog instruction missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Product (filename: mug.png) and Character (filename: maya.png)") {
		t.Fatalf("asset summary wrong:\n%s", prompt)
	}
	if !strings.Contains(prompt, "MUST be in Vietnamese") {
		t.Fatalf("language instruction wrong:\n%s", prompt)
	}
	if !strings.Contains(prompt, characterPlaceholder) || !strings.Contains(prompt, productPlaceholder) {
		t.Fatalf("placeholders missing:\n%s", prompt)
	}
}

func TestBuildNextScenePromptNumbersScenes(t *testing.T) {
	prompt := buildNextScenePrompt(NextSceneRequest{
		Scenes: []domain.Scene{
			{ImagePrompt: "v1", VideoPrompt: "a1"},
			{ImagePrompt: "v2", VideoPrompt: "a2"},
		},
		Language: domain.LanguageEnglish,
	})
	if !strings.Contains(prompt, "Scene 1 Visuals: v1") || !strings.Contains(prompt, "Scene 2 Action/Dialogue: a2") {
		t.Fatalf("scene recap missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "ONE new scene") {
		t.Fatalf("continuation instruction missing:\n%s", prompt)
	}
}

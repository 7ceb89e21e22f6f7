package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyboard/internal/domain"
)

const (
	// defaultTimeout bounds every LLM call; the remote SDKs offer no
	// server-side deadline for long generations.
	defaultTimeout = 90 * time.Second

	timeoutMessage = "The AI is taking too long to respond, the request has timed out. This could be due to high demand or a complex request. Please try again in a moment."

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// defaultSceneDuration is the seed duration for freshly suggested scenes.
const defaultSceneDuration = 5

// KeyError reports a missing or rejected API key for a specific backend.
type KeyError struct {
	Provider string
	Message  string
}

func (e *KeyError) Error() string { return e.Message }

// SuggestionRequest asks for a fresh 3-scene storyboard.
type SuggestionRequest struct {
	Scenario           domain.Scenario
	Assets             []domain.Asset
	ProductDescription string
	Language           domain.Language
}

// NextSceneRequest asks for one scene continuing an existing storyboard.
type NextSceneRequest struct {
	Scenes             []domain.Scene
	Assets             []domain.Asset
	ProductDescription string
	Language           domain.Language
}

// ScenePrompts is the prompt pair of a single generated scene.
type ScenePrompts struct {
	ImagePrompt string `json:"imagePrompt"`
	VideoPrompt string `json:"videoPrompt"`
}

// Provider is a storyboard-capable LLM backend. Implementations honor
// context cancellation and return KeyError for credential failures.
type Provider interface {
	Name() string
	GenerateStoryboard(ctx context.Context, req SuggestionRequest) ([]domain.Scene, error)
	GenerateNextScene(ctx context.Context, req NextSceneRequest) (ScenePrompts, error)
	Paraphrase(ctx context.Context, prompt string, language domain.Language) (string, error)
	AnalyzeFrames(ctx context.Context, frames []string, language domain.Language) (*domain.VideoAnalysis, error)
	// StreamChat emits assistant text incrementally via onChunk. Chunks
	// concatenate to the full reply.
	StreamChat(ctx context.Context, messages []domain.ChatMessage, onChunk func(text string)) error
}

// Builder constructs a backend bound to an API key.
type Builder func(name, key string) (Provider, error)

// Registry resolves the backend selected at call time. Instances are cached
// per provider and key, so a freshly stored key yields a fresh backend on the
// next call instead of waiting for a restart. Exactly one backend serves a
// request; the other is never contacted.
type Registry struct {
	build Builder

	mu    sync.Mutex
	cache map[registryKey]Provider
}

type registryKey struct {
	name string
	key  string
}

func NewRegistry(build Builder) *Registry {
	return &Registry{build: build, cache: map[registryKey]Provider{}}
}

// NormalizeProvider canonicalizes a backend name; an empty name selects
// gemini.
func NormalizeProvider(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return ProviderGemini
	}
	return normalized
}

func (r *Registry) Provider(name, key string) (Provider, error) {
	normalized := NormalizeProvider(name)
	if normalized != ProviderGemini && normalized != ProviderOpenAI {
		return nil, fmt.Errorf("llm: unsupported provider %q", name)
	}
	id := registryKey{name: normalized, key: key}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.cache[id]; ok {
		return p, nil
	}
	p, err := r.build(normalized, key)
	if err != nil {
		return nil, err
	}
	r.cache[id] = p
	return p, nil
}

// callTimeout derives the per-call deadline, mapping its expiry onto the
// user-facing timeout message.
func callTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

func mapTimeout(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == context.DeadlineExceeded {
		return errors.New(timeoutMessage)
	}
	return err
}

// storyboardPayload is the JSON shape both backends are instructed to return
// for storyboard suggestions.
type storyboardPayload struct {
	Scenes []struct {
		SceneNumber int    `json:"scene_number"`
		ImagePrompt string `json:"imagePrompt"`
		VideoPrompt string `json:"videoPrompt"`
	} `json:"scenes"`
}

func decodeStoryboard(raw string) ([]domain.Scene, error) {
	parsed, err := parsePayload[storyboardPayload](raw)
	if err != nil {
		return nil, fmt.Errorf("llm: decode storyboard: %w", err)
	}
	if len(parsed.Scenes) == 0 {
		return nil, errors.New("llm: storyboard response contained no scenes")
	}
	now := time.Now()
	scenes := make([]domain.Scene, 0, len(parsed.Scenes))
	for i, s := range parsed.Scenes {
		scenes = append(scenes, domain.Scene{
			ID:              uuid.NewString(),
			Position:        i,
			ImagePrompt:     s.ImagePrompt,
			VideoPrompt:     s.VideoPrompt,
			DurationSeconds: defaultSceneDuration,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return scenes, nil
}

// NewScene materializes a generated prompt pair as a fresh board scene.
func NewScene(p ScenePrompts, position int) domain.Scene {
	now := time.Now()
	return domain.Scene{
		ID:              uuid.NewString(),
		Position:        position,
		ImagePrompt:     p.ImagePrompt,
		VideoPrompt:     p.VideoPrompt,
		DurationSeconds: defaultSceneDuration,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func decodeAnalysis(raw string) (*domain.VideoAnalysis, error) {
	parsed, err := parsePayload[domain.VideoAnalysis](raw)
	if err != nil {
		return nil, fmt.Errorf("llm: decode analysis: %w", err)
	}
	return &parsed, nil
}

func parsePayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"storyboard/internal/domain"
	"storyboard/internal/infra"
	"storyboard/internal/infra/credentials"
	"storyboard/internal/providers/llm"
	"storyboard/internal/providers/videoauto"
)

// tokenSQL backs a credentials.Store with an in-memory provider->token map.
type tokenSQL struct {
	tokens map[string]string
}

func (s *tokenSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if len(args) >= 2 {
		provider, _ := args[0].(string)
		token, _ := args[1].(string)
		if s.tokens == nil {
			s.tokens = map[string]string{}
		}
		s.tokens[provider] = token
	}
	return pgconn.CommandTag{}, nil
}

func (s *tokenSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	provider, _ := args[0].(string)
	return tokenRow{token: s.tokens[provider]}
}

func (s *tokenSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type tokenRow struct {
	token string
}

func (r tokenRow) Scan(dest ...any) error {
	if r.token == "" {
		return pgx.ErrNoRows
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

// memScenes is an in-memory SceneRepository.
type memScenes struct {
	scenes  map[string]domain.Scene
	cleared bool
	saveErr error
}

func newMemScenes(scenes ...domain.Scene) *memScenes {
	m := &memScenes{scenes: map[string]domain.Scene{}}
	for _, s := range scenes {
		m.scenes[s.ID] = s
	}
	return m
}

func (m *memScenes) List(ctx context.Context) ([]domain.Scene, error) {
	out := make([]domain.Scene, 0, len(m.scenes))
	for _, s := range m.scenes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memScenes) Get(ctx context.Context, id string) (*domain.Scene, error) {
	s, ok := m.scenes[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memScenes) SaveAll(ctx context.Context, scenes []domain.Scene) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	for i := range scenes {
		scenes[i].Position = i
		m.scenes[scenes[i].ID] = scenes[i]
	}
	return nil
}

func (m *memScenes) Clear(ctx context.Context) error {
	m.cleared = true
	m.scenes = map[string]domain.Scene{}
	return nil
}

func (m *memScenes) Save(ctx context.Context, scene *domain.Scene) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.scenes[scene.ID] = *scene
	return nil
}

func (m *memScenes) Delete(ctx context.Context, id string) error {
	delete(m.scenes, id)
	return nil
}

// memAssets is an in-memory AssetRepository.
type memAssets struct {
	assets []domain.Asset
}

func (m *memAssets) List(ctx context.Context) ([]domain.Asset, error) {
	return append([]domain.Asset(nil), m.assets...), nil
}

func (m *memAssets) Save(ctx context.Context, asset *domain.Asset) error {
	for i := range m.assets {
		if m.assets[i].ID == asset.ID {
			m.assets[i] = *asset
			return nil
		}
	}
	m.assets = append(m.assets, *asset)
	return nil
}

func (m *memAssets) Delete(ctx context.Context, id string) error {
	for i := range m.assets {
		if m.assets[i].ID == id {
			m.assets = append(m.assets[:i], m.assets[i+1:]...)
			return nil
		}
	}
	return nil
}

// fakeGenerator scripts the generation API client.
type fakeGenerator struct {
	imageReq    *videoauto.ImageRequest
	imageResult *videoauto.ImageResult
	imageErr    error

	videoReq *videoauto.VideoRequest
	videoURL string
	videoErr error

	catalog    *videoauto.Catalog
	catalogErr error
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, req videoauto.ImageRequest) (*videoauto.ImageResult, error) {
	f.imageReq = &req
	return f.imageResult, f.imageErr
}

func (f *fakeGenerator) GenerateVideo(ctx context.Context, req videoauto.VideoRequest) (string, error) {
	f.videoReq = &req
	return f.videoURL, f.videoErr
}

func (f *fakeGenerator) ListModels(ctx context.Context) (*videoauto.Catalog, error) {
	return f.catalog, f.catalogErr
}

// fakeProvider scripts the LLM backend.
type fakeProvider struct {
	name string

	storyboardReq *llm.SuggestionRequest
	scenes        []domain.Scene
	scenesErr     error

	nextReq *llm.NextSceneRequest
	prompts llm.ScenePrompts
	nextErr error

	paraphraseIn   string
	paraphraseLang domain.Language
	paraphrased    string
	paraphraseErr  error

	analyzeFrames []string
	analysis      *domain.VideoAnalysis
	analyzeErr    error

	chatChunks []string
	chatErr    error
}

func (f *fakeProvider) Name() string {
	if f.name == "" {
		return llm.ProviderGemini
	}
	return f.name
}

func (f *fakeProvider) GenerateStoryboard(ctx context.Context, req llm.SuggestionRequest) ([]domain.Scene, error) {
	f.storyboardReq = &req
	return f.scenes, f.scenesErr
}

func (f *fakeProvider) GenerateNextScene(ctx context.Context, req llm.NextSceneRequest) (llm.ScenePrompts, error) {
	f.nextReq = &req
	return f.prompts, f.nextErr
}

func (f *fakeProvider) Paraphrase(ctx context.Context, prompt string, language domain.Language) (string, error) {
	f.paraphraseIn = prompt
	f.paraphraseLang = language
	return f.paraphrased, f.paraphraseErr
}

func (f *fakeProvider) AnalyzeFrames(ctx context.Context, frames []string, language domain.Language) (*domain.VideoAnalysis, error) {
	f.analyzeFrames = frames
	return f.analysis, f.analyzeErr
}

func (f *fakeProvider) StreamChat(ctx context.Context, messages []domain.ChatMessage, onChunk func(text string)) error {
	for _, chunk := range f.chatChunks {
		onChunk(chunk)
	}
	return f.chatErr
}

var _ llm.Provider = (*fakeProvider)(nil)

// fakeFrames scripts the frame extractor.
type fakeFrames struct {
	video  []byte
	count  int
	frames []string
	err    error
}

func (f *fakeFrames) Extract(ctx context.Context, video []byte, count int) ([]string, error) {
	f.video = video
	f.count = count
	return f.frames, f.err
}

type testApp struct {
	*App
	scenes    *memScenes
	assets    *memAssets
	generator *fakeGenerator
	provider  *fakeProvider
	frames    *fakeFrames
	sql       *tokenSQL
	// llmBuilds records every provider:key pair the registry resolved, so
	// tests can prove freshly stored keys reach the backend.
	llmBuilds []string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	scenes := newMemScenes()
	assets := &memAssets{}
	generator := &fakeGenerator{}
	provider := &fakeProvider{}
	frames := &fakeFrames{}
	sql := &tokenSQL{tokens: map[string]string{
		credentials.ProviderVideoAuto: "tok-test",
		credentials.ProviderGemini:    "key-test",
	}}
	app := &App{
		Logger:      zerolog.Nop(),
		Cfg:         &infra.Config{LLMProvider: llm.ProviderGemini, StorageBaseURL: "http://localhost:8080/static"},
		Scenes:      scenes,
		Assets:      assets,
		Credentials: credentials.NewStore(sql),
		Generator:   func(token string) Generator { return generator },
		Frames:      frames,
	}
	ta := &testApp{
		App:       app,
		scenes:    scenes,
		assets:    assets,
		generator: generator,
		provider:  provider,
		frames:    frames,
		sql:       sql,
	}
	app.LLM = llm.NewRegistry(func(name, key string) (llm.Provider, error) {
		ta.llmBuilds = append(ta.llmBuilds, name+":"+key)
		if key == "" {
			return nil, &llm.KeyError{Provider: name, Message: "Gemini API Key not found. Please provide your key."}
		}
		return provider, nil
	})
	return ta
}

// serve routes a request through a chi mux so URL params resolve.
func serve(pattern, method string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, handler)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

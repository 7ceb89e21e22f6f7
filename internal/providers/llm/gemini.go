package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyboard/internal/domain"
)

const (
	geminiDefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel       = "gemini-2.5-flash"
	geminiDefaultVisionModel = "gemini-2.5-pro"

	geminiKeyErrorMessage = "Invalid Gemini API Key."
)

type GeminiOptions struct {
	APIKey      string
	Model       string
	VisionModel string
	BaseURL     string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// GeminiProvider talks to the Generative Language REST API. Structured
// responses use the native responseSchema constraint instead of prompt-side
// schema begging.
type GeminiProvider struct {
	apiKey      string
	model       string
	visionModel string
	baseURL     string
	client      *http.Client
	timeout     time.Duration
}

func NewGeminiProvider(opts GeminiOptions) (*GeminiProvider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, &KeyError{Provider: ProviderGemini, Message: "Gemini API Key not found. Please provide your key."}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = geminiDefaultModel
	}
	visionModel := strings.TrimSpace(opts.VisionModel)
	if visionModel == "" {
		visionModel = geminiDefaultVisionModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &GeminiProvider{
		apiKey:      strings.TrimSpace(opts.APIKey),
		model:       model,
		visionModel: visionModel,
		baseURL:     baseURL,
		client:      client,
		timeout:     timeout,
	}, nil
}

func (g *GeminiProvider) Name() string { return ProviderGemini }

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string        `json:"responseMimeType,omitempty"`
	ResponseSchema   *geminiSchema `json:"responseSchema,omitempty"`
}

type geminiSchema struct {
	Type       string                   `json:"type"`
	Properties map[string]*geminiSchema `json:"properties,omitempty"`
	Items      *geminiSchema            `json:"items,omitempty"`
	Required   []string                 `json:"required,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

var storyboardSchema = &geminiSchema{
	Type: "OBJECT",
	Properties: map[string]*geminiSchema{
		"scenes": {
			Type: "ARRAY",
			Items: &geminiSchema{
				Type: "OBJECT",
				Properties: map[string]*geminiSchema{
					"scene_number": {Type: "INTEGER"},
					"imagePrompt":  {Type: "STRING"},
					"videoPrompt":  {Type: "STRING"},
				},
				Required: []string{"scene_number", "imagePrompt", "videoPrompt"},
			},
		},
	},
	Required: []string{"scenes"},
}

var nextSceneSchema = &geminiSchema{
	Type: "OBJECT",
	Properties: map[string]*geminiSchema{
		"imagePrompt": {Type: "STRING"},
		"videoPrompt": {Type: "STRING"},
	},
	Required: []string{"imagePrompt", "videoPrompt"},
}

func (g *GeminiProvider) GenerateStoryboard(ctx context.Context, req SuggestionRequest) ([]domain.Scene, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: buildStoryboardPrompt(req)}}}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   storyboardSchema,
		},
	}
	text, err := g.generate(ctx, g.model, payload)
	if err != nil {
		return nil, err
	}
	return decodeStoryboard(text)
}

func (g *GeminiProvider) GenerateNextScene(ctx context.Context, req NextSceneRequest) (ScenePrompts, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: buildNextScenePrompt(req)}}}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   nextSceneSchema,
		},
	}
	text, err := g.generate(ctx, g.model, payload)
	if err != nil {
		return ScenePrompts{}, err
	}
	prompts, err := parsePayload[ScenePrompts](text)
	if err != nil {
		return ScenePrompts{}, fmt.Errorf("llm: decode next scene: %w", err)
	}
	return prompts, nil
}

func (g *GeminiProvider) Paraphrase(ctx context.Context, prompt string, language domain.Language) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: buildParaphrasePrompt(prompt, language)}}}},
	}
	text, err := g.generate(ctx, g.model, payload)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *GeminiProvider) AnalyzeFrames(ctx context.Context, frames []string, language domain.Language) (*domain.VideoAnalysis, error) {
	parts := []geminiPart{{Text: buildAnalysisPrompt(language)}}
	for _, frame := range frames {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MIMEType: "image/jpeg", Data: frame}})
	}
	payload := geminiRequest{Contents: []geminiContent{{Role: "user", Parts: parts}}}
	text, err := g.generate(ctx, g.visionModel, payload)
	if err != nil {
		return nil, err
	}
	return decodeAnalysis(text)
}

func (g *GeminiProvider) StreamChat(ctx context.Context, messages []domain.ChatMessage, onChunk func(text string)) error {
	contents := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == domain.ChatAI {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	payload := geminiRequest{Contents: contents}

	ctx, cancel := callTimeout(ctx, g.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", g.baseURL, url.PathEscape(g.model))
	resp, err := g.do(ctx, endpoint, payload)
	if err != nil {
		return mapTimeout(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := g.checkStatus(resp); err != nil {
		return mapTimeout(ctx, err)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if text := extractGeminiText(chunk); text != "" {
			onChunk(text)
		}
	}
	return mapTimeout(ctx, scanner.Err())
}

func (g *GeminiProvider) generate(ctx context.Context, model string, payload geminiRequest) (string, error) {
	ctx, cancel := callTimeout(ctx, g.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(model))
	resp, err := g.do(ctx, endpoint, payload)
	if err != nil {
		return "", mapTimeout(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := g.checkStatus(resp); err != nil {
		return "", mapTimeout(ctx, err)
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", mapTimeout(ctx, fmt.Errorf("llm: decode gemini response: %w", err))
	}
	text := extractGeminiText(out)
	if text == "" {
		return "", errors.New("llm: gemini returned no candidates")
	}
	return text, nil
}

func (g *GeminiProvider) do(ctx context.Context, endpoint string, payload geminiRequest) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("llm: encode gemini request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("llm: build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)
	return g.client.Do(req)
}

func (g *GeminiProvider) checkStatus(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(resp.Body)
	var decoded geminiErrorResponse
	_ = json.Unmarshal(raw, &decoded)
	message := decoded.Error.Message
	if message == "" {
		message = fmt.Sprintf("gemini status %d", resp.StatusCode)
	}
	if strings.Contains(message, "API key not valid") {
		return &KeyError{Provider: ProviderGemini, Message: geminiKeyErrorMessage}
	}
	return errors.New(message)
}

func extractGeminiText(resp geminiResponse) string {
	sb := &strings.Builder{}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

var _ Provider = (*GeminiProvider)(nil)

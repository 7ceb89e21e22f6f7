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
	"strings"
	"time"

	"storyboard/internal/domain"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com/v1"

	openAIChatModel       = "gpt-4-turbo"
	openAIParaphraseModel = "gpt-3.5-turbo"
	openAIVisionModel     = "gpt-4o"

	openAIVisionMaxTokens = 2000

	openAIKeyErrorMessage = "Invalid OpenAI API Key. Please check your key."
)

type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// OpenAIProvider talks to the Chat Completions API. Structured responses use
// the json_object response format; the desired schema is carried in the
// prompt text since the endpoint cannot enforce one.
type OpenAIProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, &KeyError{Provider: ProviderOpenAI, Message: "OpenAI API Key not found. Please provide your key."}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = openAIChatModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAIProvider{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
		timeout: timeout,
	}, nil
}

func (o *OpenAIProvider) Name() string { return ProviderOpenAI }

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAIProvider) GenerateStoryboard(ctx context.Context, req SuggestionRequest) ([]domain.Scene, error) {
	payload := openAIChatRequest{
		Model:          o.model,
		Messages:       []openAIMessage{{Role: "system", Content: buildStoryboardPrompt(req)}},
		ResponseFormat: &openAIFormat{Type: "json_object"},
	}
	text, err := o.complete(ctx, payload)
	if err != nil {
		return nil, err
	}
	return decodeStoryboard(text)
}

func (o *OpenAIProvider) GenerateNextScene(ctx context.Context, req NextSceneRequest) (ScenePrompts, error) {
	payload := openAIChatRequest{
		Model:          o.model,
		Messages:       []openAIMessage{{Role: "system", Content: buildNextScenePrompt(req)}},
		ResponseFormat: &openAIFormat{Type: "json_object"},
	}
	text, err := o.complete(ctx, payload)
	if err != nil {
		return ScenePrompts{}, err
	}
	prompts, err := parsePayload[ScenePrompts](text)
	if err != nil {
		return ScenePrompts{}, fmt.Errorf("llm: decode next scene: %w", err)
	}
	return prompts, nil
}

func (o *OpenAIProvider) Paraphrase(ctx context.Context, prompt string, language domain.Language) (string, error) {
	payload := openAIChatRequest{
		Model: openAIParaphraseModel,
		Messages: []openAIMessage{
			{Role: "system", Content: paraphraseSystemPrompt(language)},
			{Role: "user", Content: prompt},
		},
	}
	text, err := o.complete(ctx, payload)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (o *OpenAIProvider) AnalyzeFrames(ctx context.Context, frames []string, language domain.Language) (*domain.VideoAnalysis, error) {
	parts := []openAIContentPart{{Type: "text", Text: buildAnalysisPrompt(language)}}
	for _, frame := range frames {
		parts = append(parts, openAIContentPart{
			Type:     "image_url",
			ImageURL: &openAIImageURL{URL: "data:image/jpeg;base64," + frame},
		})
	}
	payload := openAIChatRequest{
		Model:          openAIVisionModel,
		Messages:       []openAIMessage{{Role: "user", Content: parts}},
		MaxTokens:      openAIVisionMaxTokens,
		ResponseFormat: &openAIFormat{Type: "json_object"},
	}
	text, err := o.complete(ctx, payload)
	if err != nil {
		return nil, err
	}
	return decodeAnalysis(text)
}

func (o *OpenAIProvider) StreamChat(ctx context.Context, messages []domain.ChatMessage, onChunk func(text string)) error {
	payload := openAIChatRequest{
		Model:    o.model,
		Messages: make([]openAIMessage, 0, len(messages)),
		Stream:   true,
	}
	for _, m := range messages {
		role := string(m.Role)
		if m.Role == domain.ChatAI {
			role = "assistant"
		}
		payload.Messages = append(payload.Messages, openAIMessage{Role: role, Content: m.Content})
	}

	ctx, cancel := callTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.do(ctx, payload)
	if err != nil {
		return mapTimeout(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := o.checkStatus(resp); err != nil {
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
		if strings.TrimSpace(data) == "[DONE]" {
			return nil
		}
		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				onChunk(choice.Delta.Content)
			}
		}
	}
	return mapTimeout(ctx, scanner.Err())
}

func (o *OpenAIProvider) complete(ctx context.Context, payload openAIChatRequest) (string, error) {
	ctx, cancel := callTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.do(ctx, payload)
	if err != nil {
		return "", mapTimeout(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := o.checkStatus(resp); err != nil {
		return "", mapTimeout(ctx, err)
	}
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", mapTimeout(ctx, fmt.Errorf("llm: decode openai response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", errors.New("llm: openai returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) do(ctx context.Context, payload openAIChatRequest) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("llm: encode openai request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", &buf)
	if err != nil {
		return nil, fmt.Errorf("llm: build openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	return o.client.Do(req)
}

func (o *OpenAIProvider) checkStatus(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &KeyError{Provider: ProviderOpenAI, Message: openAIKeyErrorMessage}
	}
	raw, _ := io.ReadAll(resp.Body)
	var decoded openAIErrorResponse
	_ = json.Unmarshal(raw, &decoded)
	if decoded.Error.Message != "" {
		return errors.New(decoded.Error.Message)
	}
	return fmt.Errorf("API Error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

var _ Provider = (*OpenAIProvider)(nil)

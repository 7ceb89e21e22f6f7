package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"storyboard/internal/infra"
	"storyboard/internal/sqlinline"
)

const (
	ProviderVideoAuto = "videoauto"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	// providerLLMFlag stores which LLM backend services LLM-backed operations.
	providerLLMFlag = "llm_provider"
)

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// VideoAutoToken returns the generation API access token, or "" when unset.
func (s *Store) VideoAutoToken(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderVideoAuto)
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

func (s *Store) OpenAIAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderOpenAI)
}

// LLMProvider returns the stored provider flag, or "" when none was selected.
func (s *Store) LLMProvider(ctx context.Context) (string, error) {
	return s.Token(ctx, providerLLMFlag)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetVideoAutoToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("generation api token is required")
	}
	return s.upsert(ctx, ProviderVideoAuto, token, nil)
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	return s.upsert(ctx, ProviderGemini, key, nil)
}

func (s *Store) SetOpenAIAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("openai api key is required")
	}
	return s.upsert(ctx, ProviderOpenAI, key, nil)
}

func (s *Store) SetLLMProvider(ctx context.Context, provider string) error {
	provider = strings.TrimSpace(strings.ToLower(provider))
	switch provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return errors.New("unsupported llm provider")
	}
	return s.upsert(ctx, providerLLMFlag, provider, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/storyboard")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.VideoAutoBaseURL != "https://api.gommo.net/ai" {
		t.Fatalf("VideoAutoBaseURL = %q", cfg.VideoAutoBaseURL)
	}
	if cfg.ImagePollInterval != 5*time.Second || cfg.ImagePollTimeout != 120*time.Second {
		t.Fatalf("image polling defaults = %v/%v", cfg.ImagePollInterval, cfg.ImagePollTimeout)
	}
	if cfg.VideoPollInterval != 10*time.Second || cfg.VideoPollTimeout != 600*time.Second || cfg.VideoURLGrace != 60*time.Second {
		t.Fatalf("video polling defaults = %v/%v/%v", cfg.VideoPollInterval, cfg.VideoPollTimeout, cfg.VideoURLGrace)
	}
	if cfg.LLMTimeout != 90*time.Second {
		t.Fatalf("LLMTimeout = %v", cfg.LLMTimeout)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("LLMProvider = %q", cfg.LLMProvider)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/storyboard")
	t.Setenv("IMAGE_POLL_INTERVAL_SECONDS", "1")
	t.Setenv("LLM_PROVIDER", "openai")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ImagePollInterval != time.Second {
		t.Fatalf("ImagePollInterval = %v, want 1s", cfg.ImagePollInterval)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("LLMProvider = %q, want openai", cfg.LLMProvider)
	}
}

package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	StorageBaseURL string
	StoragePath    string
	GeoIPDBPath    string

	// Generation API (AIVideoAuto).
	VideoAutoBaseURL   string
	VideoAutoToken     string
	ImagePollInterval  time.Duration
	ImagePollTimeout   time.Duration
	VideoPollInterval  time.Duration
	VideoPollTimeout   time.Duration
	VideoURLGrace      time.Duration
	TransportRetryWait time.Duration

	// LLM backends.
	LLMProvider   string
	LLMTimeout    time.Duration
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	FFmpegPath  string
	FFprobePath string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),

		VideoAutoBaseURL:   getEnv("VIDEOAUTO_BASE_URL", "https://api.gommo.net/ai"),
		VideoAutoToken:     os.Getenv("VIDEOAUTO_TOKEN"),
		ImagePollInterval:  time.Second * time.Duration(getEnvInt("IMAGE_POLL_INTERVAL_SECONDS", 5)),
		ImagePollTimeout:   time.Second * time.Duration(getEnvInt("IMAGE_POLL_TIMEOUT_SECONDS", 120)),
		VideoPollInterval:  time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 10)),
		VideoPollTimeout:   time.Second * time.Duration(getEnvInt("VIDEO_POLL_TIMEOUT_SECONDS", 600)),
		VideoURLGrace:      time.Second * time.Duration(getEnvInt("VIDEO_URL_GRACE_SECONDS", 60)),
		TransportRetryWait: time.Second * time.Duration(getEnvInt("TRANSPORT_RETRY_SECONDS", 3)),

		LLMProvider:   getEnv("LLM_PROVIDER", "gemini"),
		LLMTimeout:    time.Second * time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 90)),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4-turbo"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

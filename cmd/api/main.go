package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"storyboard/internal/adapter/repo"
	"storyboard/internal/frames"
	httpapi "storyboard/internal/http"
	"storyboard/internal/http/handlers"
	"storyboard/internal/infra"
	"storyboard/internal/infra/credentials"
	"storyboard/internal/infra/geoip"
	"storyboard/internal/middleware"
	"storyboard/internal/providers/llm"
	"storyboard/internal/providers/videoauto"
	"storyboard/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	if err := infra.Migrate(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	sqlRunner := infra.NewSQLRunner(dbpool, logger)

	creds := credentials.NewStore(sqlRunner)

	files, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	registry := newLLMRegistry(cfg)

	var lookup middleware.CountryLookup
	if cfg.GeoIPDBPath != "" {
		resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn().Err(err).Msg("geoip disabled")
		} else {
			lookup = resolver.CountryCode
		}
	}

	app := &handlers.App{
		Logger:      logger,
		Cfg:         cfg,
		Scenes:      repo.NewSceneRepository(sqlRunner),
		Assets:      repo.NewAssetRepository(sqlRunner),
		Credentials: creds,
		LLM:         registry,
		Generator: func(token string) handlers.Generator {
			return videoauto.NewClient(videoauto.Options{
				Token:             token,
				BaseURL:           cfg.VideoAutoBaseURL,
				Logger:            &logger,
				RetryWait:         cfg.TransportRetryWait,
				ImagePollInterval: cfg.ImagePollInterval,
				ImagePollTimeout:  cfg.ImagePollTimeout,
				VideoPollInterval: cfg.VideoPollInterval,
				VideoPollTimeout:  cfg.VideoPollTimeout,
				VideoURLGrace:     cfg.VideoURLGrace,
			})
		},
		Frames: frames.NewExtractor(frames.Options{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			Logger:      &logger,
		}),
		Files: files,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		CountryLookup: lookup,
		DefaultLocale: "en",
		RateLimit:     cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// newLLMRegistry wires the Gemini and OpenAI backends behind a key-aware
// builder. Keys are resolved from the credential store per request, so the
// registry only carries the static transport configuration.
func newLLMRegistry(cfg *infra.Config) *llm.Registry {
	return llm.NewRegistry(func(name, key string) (llm.Provider, error) {
		switch name {
		case llm.ProviderOpenAI:
			return llm.NewOpenAIProvider(llm.OpenAIOptions{
				APIKey:  key,
				BaseURL: cfg.OpenAIBaseURL,
				Model:   cfg.OpenAIModel,
				Timeout: cfg.LLMTimeout,
			})
		default:
			return llm.NewGeminiProvider(llm.GeminiOptions{
				APIKey:  key,
				BaseURL: cfg.GeminiBaseURL,
				Model:   cfg.GeminiModel,
				Timeout: cfg.LLMTimeout,
			})
		}
	})
}

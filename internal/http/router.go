package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storyboard/internal/http/handlers"
	"storyboard/internal/middleware"
)

// Options carries the router-level knobs that do not belong on the App.
type Options struct {
	// CountryLookup backs the locale middleware's GeoIP fallback; nil means
	// header-only detection.
	CountryLookup  middleware.CountryLookup
	AllowedOrigins []string
	DefaultLocale  string
	RateLimit      int
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	limit := opts.RateLimit
	if limit <= 0 {
		limit = 30
	}
	generationLimiter := middleware.RateLimit(limit, time.Minute)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/storyboard", func(r chi.Router) {
		r.Post("/suggestions", app.SuggestStoryboard)
		r.Post("/next", app.NextScene)
		r.Get("/archive", app.Archive)
	})

	r.Post("/v1/prompts/paraphrase", app.Paraphrase)

	r.Route("/v1/scenes", func(r chi.Router) {
		r.Get("/", app.ListScenes)
		r.Put("/", app.SaveScenes)
		r.Delete("/{id}", app.DeleteScene)
		r.With(generationLimiter).Post("/{id}/image", app.SceneImage)
		r.With(generationLimiter).Post("/{id}/video", app.SceneVideo)
	})

	r.With(generationLimiter).Post("/v1/analyze", app.Analyze)
	r.Post("/v1/chat", app.Chat)
	r.Get("/v1/models", app.ListModels)

	r.Route("/v1/assets", func(r chi.Router) {
		r.Get("/", app.ListAssets)
		r.Post("/", app.SaveAsset)
		r.Delete("/{id}", app.DeleteAsset)
	})

	r.Route("/v1/tokens", func(r chi.Router) {
		r.Get("/", app.TokensStatus)
		r.Post("/", app.SetToken)
	})

	return r
}

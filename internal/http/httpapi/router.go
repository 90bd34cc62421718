package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"veostudio/internal/http/handlers"
	"veostudio/internal/infra"
	"veostudio/internal/metrics"
	appmw "veostudio/internal/middleware"
)

// NewRouter assembles the HTTP surface: the generation API, progress and
// lifecycle endpoints, health, metrics and static serving of materialized
// artifacts.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		appmw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		appmw.Logger(logger),
		appmw.CORS(cfg.AllowedOrigins),
		appmw.I18N(cfg.DefaultLocale),
	)

	r.Get("/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/videos", func(r chi.Router) {
		r.Use(appmw.RateLimit(cfg.RateLimitPerMin, time.Minute))
		r.Post("/generations", app.VideosGenerate)
		r.Get("/generations", app.VideosList)
		r.Get("/generations/progress", app.VideosProgress)
		r.Delete("/generations", app.VideosClear)
	})

	if base := app.Store.BasePath(); base != "" {
		static := http.StripPrefix("/static/", http.FileServer(http.Dir(base)))
		r.Get("/static/*", static.ServeHTTP)
	}

	return r
}

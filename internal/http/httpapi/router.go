package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"productshot/internal/http/handlers"
	"productshot/internal/metrics"
	"productshot/internal/middleware"
)

// Options configures the router middleware.
type Options struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Post("/v1/process-video", app.ProcessVideo)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

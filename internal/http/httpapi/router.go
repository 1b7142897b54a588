package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ivanivanho-work/template-stamper/internal/http/handlers"
	"github.com/ivanivanho-work/template-stamper/internal/middleware"
)

// Options carries router-level knobs.
type Options struct {
	AllowedOrigins  []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	// The completion webhook sits outside the rate limit: it is called by
	// the render backend, not by browsers.
	r.Post("/v1/renders/complete", app.RenderComplete)

	r.Group(func(r chi.Router) {
		if opts.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		}

		r.Route("/v1/jobs", func(r chi.Router) {
			r.Post("/", app.CreateJob)
			r.Get("/", app.ListJobs)
			r.Get("/{id}", app.GetJob)
			r.Get("/{id}/subscribe", app.SubscribeJob)
		})

		r.Route("/v1/templates", func(r chi.Router) {
			r.Get("/", app.ListTemplates)
			r.Post("/", app.CreateTemplate)
			r.Get("/{id}", app.GetTemplate)
		})

		r.Route("/v1/assets", func(r chi.Router) {
			r.Get("/", app.ListAssets)
			r.Post("/", app.IngestAssets)
		})

		r.Get("/v1/stats/jobs-24h", app.JobStats24h)
	})

	return r
}

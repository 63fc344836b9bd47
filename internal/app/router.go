package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/centbook/centbook/internal/bills"
	"github.com/centbook/centbook/internal/health"
	"github.com/centbook/centbook/internal/observability"
	"github.com/centbook/centbook/internal/projection"
	"github.com/centbook/centbook/internal/recurring"
	"github.com/centbook/centbook/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	RecurringHandler  *recurring.Handler
	BillsHandler      *bills.Handler
	ProjectionHandler *projection.Handler
	HealthHandler     *health.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.RecurringHandler != nil {
			api.Route("/recurring", params.RecurringHandler.MountRoutes)
		}
		if params.BillsHandler != nil {
			api.Route("/bills", params.BillsHandler.MountRoutes)
		}
		if params.ProjectionHandler != nil {
			api.Route("/projections", params.ProjectionHandler.MountRoutes)
		}
		if params.HealthHandler != nil {
			api.Route("/health", params.HealthHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}

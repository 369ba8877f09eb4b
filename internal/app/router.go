package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/procureflow/procureflow/internal/audit"
	"github.com/procureflow/procureflow/internal/identity"
	"github.com/procureflow/procureflow/internal/procurement"
	"github.com/procureflow/procureflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Directory          identity.Directory
	ProcurementHandler *procurement.Handler
	AuditHandler       *audit.Handler
	JobsHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router. Everything except the health probe
// sits behind basic auth.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(params.Directory, params.Logger))
		r.Route("/api", func(r chi.Router) {
			params.ProcurementHandler.MountRoutes(r)
			if params.AuditHandler != nil {
				r.Route("/audit", params.AuditHandler.MountRoutes)
			}
			if params.JobsHandler != nil {
				r.Route("/jobs", params.JobsHandler.MountRoutes)
			}
		})
	})

	return r
}

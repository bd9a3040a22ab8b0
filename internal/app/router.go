package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/octane-tech/nfc-tracker/internal/audit"
	"github.com/octane-tech/nfc-tracker/internal/auth"
	"github.com/octane-tech/nfc-tracker/internal/companies"
	"github.com/octane-tech/nfc-tracker/internal/nfc"
	"github.com/octane-tech/nfc-tracker/internal/observability"
	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/rbac"
	"github.com/octane-tech/nfc-tracker/internal/reports"
	"github.com/octane-tech/nfc-tracker/internal/shared"
	"github.com/octane-tech/nfc-tracker/internal/users"
	"github.com/octane-tech/nfc-tracker/jobs"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthHandler      *auth.Handler
	Gate             *auth.Gate
	UsersHandler     *users.Handler
	NFCHandler       *nfc.Handler
	CompaniesHandler *companies.Handler
	ReportsHandler   *reports.Handler
	AuditHandler     *audit.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	HealthChecks     map[string]HealthCheck
}

// NewRouter constructs the chi.Router with the API defaults.
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

	r.Get("/healthz", healthHandler(params.HealthChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.Gate.Middleware)

			params.UsersHandler.MountRoutes(r)
			params.NFCHandler.MountRoutes(r)
			params.CompaniesHandler.MountRoutes(r)

			r.Route("/admin", func(r chi.Router) {
				r.Use(rbac.RequireRole(params.Logger, shared.RoleAdmin))
				params.UsersHandler.MountAdminRoutes(r)
				params.NFCHandler.MountAdminRoutes(r)
				params.CompaniesHandler.MountAdminRoutes(r)
				if params.ReportsHandler != nil {
					params.ReportsHandler.MountAdminRoutes(r)
				}
				if params.AuditHandler != nil {
					params.AuditHandler.MountAdminRoutes(r)
				}
				if params.JobHandler != nil {
					r.Route("/jobs", params.JobHandler.MountRoutes)
				}
			})
		})
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		httpx.JSON(w, status, map[string]any{"status": overall, "checks": results})
	}
}

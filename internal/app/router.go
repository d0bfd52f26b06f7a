package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	analytichttp "github.com/parcelhub/parcelhub/internal/analytics/http"
	"github.com/parcelhub/parcelhub/internal/auth"
	"github.com/parcelhub/parcelhub/internal/branches"
	"github.com/parcelhub/parcelhub/internal/buses"
	"github.com/parcelhub/parcelhub/internal/notify"
	"github.com/parcelhub/parcelhub/internal/observability"
	"github.com/parcelhub/parcelhub/internal/rbac"
	"github.com/parcelhub/parcelhub/internal/shipment"
	"github.com/parcelhub/parcelhub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Authenticator  *auth.Authenticator
	RBACMiddleware rbac.Middleware

	AuthHandler        *auth.Handler
	ShipmentHandler    *shipment.Handler
	BranchHandler      *branches.Handler
	BusHandler         *buses.Handler
	AnalyticsHandler   *analytichttp.Handler
	MessageHandler     *notify.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with ParcelHub defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.ShipmentHandler != nil {
			r.Route("/shipment", params.ShipmentHandler.MountRoutes)
		}

		if params.MessageHandler != nil {
			r.Route("/messages", func(r chi.Router) {
				// Browsers cannot set headers on a websocket handshake.
				r.With(params.Authenticator.WithQueryToken().Middleware).Get("/ws/", params.MessageHandler.ServeLive)
				r.Group(func(r chi.Router) {
					r.Use(params.Authenticator.Middleware)
					r.Use(params.RBACMiddleware.RequireAny(rbac.PermMessagesView))
					params.MessageHandler.MountRoutes(r)
				})
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(params.Authenticator.Middleware)

			if params.BranchHandler != nil {
				r.Route("/branch", params.BranchHandler.MountRoutes)
			}
			if params.BusHandler != nil {
				r.Route("/bus", params.BusHandler.MountRoutes)
			}
			if params.AnalyticsHandler != nil {
				r.Route("/analytics", func(r chi.Router) {
					params.AnalyticsHandler.MountRoutes(r, params.RBACMiddleware)
				})
			}
			if params.PermissionsHandler != nil {
				r.Route("/permissions", params.PermissionsHandler.MountRoutes)
			}
		})
	})

	if params.JobHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(params.Authenticator.Middleware)
			r.Use(params.RBACMiddleware.RequireAny(rbac.PermBranchManage))
			r.Route("/jobs", params.JobHandler.MountRoutes)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

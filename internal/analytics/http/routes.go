package analytichttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/rbac"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// MountRoutes registers analytics endpoints. Callers mount it behind authentication.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached, retry later")
		}),
	)

	r.Group(func(gr chi.Router) {
		gr.Use(guard.RequireAll(rbac.PermAnalyticsOrganization))
		gr.Post("/organization/", h.handleOrganization)
		gr.With(limiter).Post("/organization/export.csv", h.handleOrganizationCSV)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(guard.RequireAll(rbac.PermAnalyticsBranch))
		gr.Post("/branch/", h.handleBranch)
		gr.With(limiter).Post("/branch/export.csv", h.handleBranchCSV)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if p, ok := shared.PrincipalFromContext(r.Context()); ok && p.UserID != 0 {
		return "user:" + strconv.FormatInt(p.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

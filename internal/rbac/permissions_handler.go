package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// PermissionsHandler exposes the permission catalogue and the caller's grants.
type PermissionsHandler struct {
	logger  *slog.Logger
	service *Service
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service}
}

// MountRoutes registers permission routes. Callers mount it behind authentication.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
	r.Get("/me", h.myPermissions)
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, "Permissions fetched successfully", h.service.ListPermissions(r.Context()))
}

func (h *PermissionsHandler) myPermissions(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	httpx.OK(w, http.StatusOK, "Permissions fetched successfully", map[string]any{
		"role":        p.Role,
		"office_id":   p.OfficeID,
		"permissions": h.service.EffectivePermissions(r.Context(), p),
	})
}

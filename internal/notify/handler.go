package notify

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/shared"
)

const listLimit = 200

// Handler serves the message log and the live feed.
type Handler struct {
	logger *slog.Logger
	repo   Repository
	hub    *Hub
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo Repository, hub *Hub) *Handler {
	return &Handler{logger: logger, repo: repo, hub: hub}
}

// MountRoutes registers the message log routes. Callers mount them behind authentication.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Patch("/{id}/read/", h.markRead)
}

// ServeLive upgrades to a websocket streaming new messages in the caller's scope.
func (h *Handler) ServeLive(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFor(r)
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "message feed requires an administrator")
		return
	}
	h.hub.Serve(w, r, scope)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFor(r)
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "message log requires an administrator")
		return
	}
	msgs, err := h.repo.List(r.Context(), scope, listLimit)
	if err != nil {
		h.logger.Error("list messages", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}
	httpx.OK(w, http.StatusOK, "Messages fetched successfully", msgs)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFor(r)
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "message log requires an administrator")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid message id", "id must be a positive integer")
		return
	}
	if err := h.repo.MarkRead(r.Context(), scope, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Message marked as read", nil)
}

func scopeFor(r *http.Request) (Scope, bool) {
	p, _ := shared.PrincipalFromContext(r.Context())
	switch {
	case p.IsSuperAdmin():
		return Scope{All: true}, true
	case p.IsOfficeAdmin():
		return Scope{OfficeID: p.OfficeID}, true
	default:
		return Scope{}, false
	}
}

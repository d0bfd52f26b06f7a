package buses

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/rbac"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// Handler exposes bus endpoints behind authentication.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers bus routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermBusView))
		r.Get("/list/", h.list)
		r.Get("/available/", h.available)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermBusManage))
		r.Post("/add/", h.create)
		r.Delete("/{slug}/delete/", h.delete)
	})
}

type createRequest struct {
	BusNumber     string `json:"bus_number" validate:"required,max=20"`
	Description   string `json:"description,omitempty" validate:"max=1000"`
	PreferredDays []int  `json:"preferred_days" validate:"dive,min=1,max=7"`
}

// BusResponse is the wire shape of a bus.
type BusResponse struct {
	Slug          string    `json:"slug"`
	BusNumber     string    `json:"bus_number"`
	Description   *string   `json:"description"`
	PreferredDays []int     `json:"preferred_days"`
	CreatedAt     time.Time `json:"created_at"`
}

func toResponses(items []Bus) []BusResponse {
	out := make([]BusResponse, 0, len(items))
	for _, b := range items {
		out = append(out, toResponse(b))
	}
	return out
}

func toResponse(b Bus) BusResponse {
	out := BusResponse{Slug: b.Slug, BusNumber: b.BusNumber, PreferredDays: b.PreferredDays, CreatedAt: b.CreatedAt}
	if out.PreferredDays == nil {
		out.PreferredDays = []int{}
	}
	if b.Description != "" {
		d := b.Description
		out.Description = &d
	}
	return out
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	p, _ := shared.PrincipalFromContext(r.Context())
	b, err := h.service.Create(r.Context(), p, CreateInput{
		BusNumber:     req.BusNumber,
		Description:   req.Description,
		PreferredDays: req.PreferredDays,
	})
	if err != nil {
		h.fail("create bus", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Bus created successfully", toResponse(b))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.fail("list buses", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Buses retrieved successfully", toResponses(items))
}

func (h *Handler) available(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("day")
	if raw == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "day query parameter is required")
		return
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "day must be formatted as YYYY-MM-DD")
		return
	}
	items, err := h.service.Available(r.Context(), day)
	if err != nil {
		h.fail("available buses", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Available buses retrieved successfully", toResponses(items))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "slug")); err != nil {
		h.fail("delete bus", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Bus deleted successfully", nil)
}

func (h *Handler) fail(op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
		return
	}
	h.logger.Debug(op, slog.Any("error", err))
}

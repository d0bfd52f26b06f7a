package branches

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

// Handler exposes branch endpoints. Callers mount it behind authentication.
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

// MountRoutes registers branch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermBranchManage))
		r.Post("/add/", h.create)
		r.Get("/list/", h.list)
		r.Delete("/{slug}/delete/", h.delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermBranchSelf))
		r.Get("/me/", h.me)
		r.Get("/others/", h.others)
		r.Post("/day_end/", h.dayEnd)
	})
}

type createRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=100"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	Username    string `json:"username,omitempty" validate:"omitempty,min=3,max=150"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

// BranchResponse is the wire shape of a branch.
type BranchResponse struct {
	Slug                   string     `json:"slug"`
	Title                  string     `json:"title"`
	Description            *string    `json:"description"`
	Username               string     `json:"username"`
	CurrentOperationalDate string     `json:"current_operational_date"`
	LastDayEndAt           *time.Time `json:"last_day_end_at"`
	CreatedAt              time.Time  `json:"created_at"`
}

func toResponse(b Branch) BranchResponse {
	out := BranchResponse{
		Slug:                   b.Slug,
		Title:                  b.Title,
		Username:               b.OwnerUsername,
		CurrentOperationalDate: b.CurrentOperationalDate.Format("2006-01-02"),
		LastDayEndAt:           b.LastDayEndAt,
		CreatedAt:              b.CreatedAt,
	}
	if b.Description != "" {
		d := b.Description
		out.Description = &d
	}
	return out
}

func toResponses(items []Branch) []BranchResponse {
	out := make([]BranchResponse, 0, len(items))
	for _, b := range items {
		out = append(out, toResponse(b))
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
		Title:       req.Title,
		Description: req.Description,
		Username:    req.Username,
		Password:    req.Password,
	})
	if err != nil {
		h.fail("create branch", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Branch created successfully", toResponse(b))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.fail("list branches", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Branches retrieved successfully", toResponses(items))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "slug")); err != nil {
		h.fail("delete branch", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Branch deleted successfully", nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	b, err := h.service.Me(r.Context(), p)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Branch info retrieved", toResponse(b))
}

func (h *Handler) others(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	items, err := h.service.Others(r.Context(), p)
	if err != nil {
		h.fail("list other branches", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Branches retrieved successfully", toResponses(items))
}

func (h *Handler) dayEnd(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	b, err := h.service.DayEnd(r.Context(), p)
	if err != nil {
		h.fail("day end", err)
		httpx.RespondError(w, err)
		return
	}
	msg := "Day End processed. Next operational day is " + b.CurrentOperationalDate.Format("2006-01-02")
	httpx.OK(w, http.StatusOK, msg, toResponse(b))
}

func (h *Handler) fail(op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
		return
	}
	h.logger.Debug(op, slog.Any("error", err))
}

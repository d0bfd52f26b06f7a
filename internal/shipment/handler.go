package shipment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/rbac"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// IdempotencyHeader carries the client supplied booking key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes shipment endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	authenticate func(http.Handler) http.Handler
	rbac         rbac.Middleware
	validator    *validator.Validate
}

// NewHandler builds a Handler. authenticate must place the principal in context.
func NewHandler(logger *slog.Logger, service *Service, authenticate func(http.Handler) http.Handler, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		authenticate: authenticate,
		rbac:         rbac,
		validator:    validator.New(),
	}
}

// MountRoutes registers shipment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	// Public tracking
	r.Get("/track/{trackingID}/", h.track)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.With(h.rbac.RequireAll(rbac.PermShipmentCreate)).Post("/create/", h.create)
		r.With(h.rbac.RequireAny(rbac.PermShipmentListAll, rbac.PermShipmentView)).Get("/list/", h.list)
		r.With(h.rbac.RequireRole(shared.RoleOfficeAdmin)).Get("/branch/list/", h.list)

		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.PermShipmentView))
			r.Get("/{trackingID}/", h.show)
			r.Get("/{trackingID}/actions/", h.actions)
		})

		r.With(h.rbac.RequireAll(rbac.PermShipmentTransition)).Patch("/{trackingID}/update-status/", h.updateStatus)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateShipmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	in, err := req.ToCreateRequest(strings.TrimSpace(r.Header.Get(IdempotencyHeader)))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	p, _ := shared.PrincipalFromContext(r.Context())
	created, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		h.fail(r, "create shipment", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Shipment booked successfully", ToResponse(created))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, _ := shared.PrincipalFromContext(r.Context())
	items, err := h.service.List(r.Context(), p, filter)
	if err != nil {
		h.fail(r, "list shipments", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Shipments fetched successfully", ToListResponse(items))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	s, err := h.service.Get(r.Context(), p, chi.URLParam(r, "trackingID"))
	if err != nil {
		h.fail(r, "get shipment", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Shipment fetched successfully", ToResponse(s))
}

func (h *Handler) actions(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	s, next, err := h.service.Actions(r.Context(), p, chi.URLParam(r, "trackingID"))
	if err != nil {
		h.fail(r, "shipment actions", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Actions fetched", ToActionsResponse(s, next))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	p, _ := shared.PrincipalFromContext(r.Context())
	updated, err := h.service.Transition(r.Context(), p, chi.URLParam(r, "trackingID"), Status(req.Status), req.Remarks)
	if err != nil {
		h.fail(r, "update shipment status", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Status updated to "+req.Status, ToResponse(updated))
}

func (h *Handler) track(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Track(r.Context(), chi.URLParam(r, "trackingID"))
	if err != nil {
		h.fail(r, "track shipment", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Tracking info fetched", ToResponse(s))
}

func (h *Handler) fail(r *http.Request, op string, err error) {
	attrs := []any{slog.String("path", r.URL.Path), slog.Any("error", err)}
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, attrs...)
		return
	}
	h.logger.Debug(op, attrs...)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{Status: Status(strings.ToUpper(q.Get("status")))}
	if raw := q.Get("day"); raw != "" {
		day, err := time.Parse(dayLayout, raw)
		if err != nil {
			return ListFilter{}, errors.New("day must be YYYY-MM-DD")
		}
		filter.Day = day
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	if q.Get("page") != "" || q.Get("page_size") != "" {
		page, size = shared.NormalizePage(page, size)
		filter.Limit = size
		filter.Offset = shared.Offset(page, size)
	}
	return filter, nil
}

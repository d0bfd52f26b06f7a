package analytichttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/parcelhub/parcelhub/internal/analytics"
	"github.com/parcelhub/parcelhub/internal/analytics/export"
	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/shared"
)

const requestTimeout = 5 * time.Second

// AnalyticsService defines the report contract used by the handler.
type AnalyticsService interface {
	Report(ctx context.Context, scope analytics.Scope, f analytics.Filter) (analytics.Report, error)
}

// Handler serves shipment analytics.
type Handler struct {
	logger    *slog.Logger
	service   AnalyticsService
	validator *validator.Validate
	csvPool   sync.Pool
	now       func() time.Time
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service AnalyticsService) *Handler {
	h := &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		now:       time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

type filterRequest struct {
	StartDate             string   `json:"start_date,omitempty"`
	EndDate               string   `json:"end_date,omitempty"`
	Status                []string `json:"status,omitempty" validate:"omitempty,dive,oneof=BOOKED IN_TRANSIT ARRIVED DELIVERED"`
	BranchSlug            string   `json:"branch_slug,omitempty"`
	SourceBranchSlug      string   `json:"source_branch_slug,omitempty"`
	DestinationBranchSlug string   `json:"destination_branch_slug,omitempty"`
	BusSlug               string   `json:"bus_slug,omitempty"`
	PaymentMode           string   `json:"payment_mode,omitempty" validate:"omitempty,oneof=SENDER_PAYS RECEIVER_PAYS"`
	MinPrice              *float64 `json:"min_price,omitempty" validate:"omitempty,gte=0"`
	MaxPrice              *float64 `json:"max_price,omitempty" validate:"omitempty,gte=0"`
	Search                string   `json:"search,omitempty" validate:"max=100"`
	Page                  int      `json:"page,omitempty" validate:"gte=0"`
	PageSize              int      `json:"page_size,omitempty" validate:"gte=0,lte=500"`
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}

// parseDay accepts YYYY-MM-DD or an RFC3339 timestamp and keeps the date part.
func parseDay(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if i := strings.IndexByte(raw, 'T'); i > 0 {
		raw = raw[:i]
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, validationError{field: field}
	}
	return &day, nil
}

func (req filterRequest) toFilter() (analytics.Filter, error) {
	start, err := parseDay("start_date", req.StartDate)
	if err != nil {
		return analytics.Filter{}, err
	}
	end, err := parseDay("end_date", req.EndDate)
	if err != nil {
		return analytics.Filter{}, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return analytics.Filter{}, validationError{field: "end_date"}
	}
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MaxPrice < *req.MinPrice {
		return analytics.Filter{}, validationError{field: "max_price"}
	}
	return analytics.Filter{
		StartDay:              start,
		EndDay:                end,
		Statuses:              req.Status,
		BranchSlug:            strings.TrimSpace(req.BranchSlug),
		SourceBranchSlug:      strings.TrimSpace(req.SourceBranchSlug),
		DestinationBranchSlug: strings.TrimSpace(req.DestinationBranchSlug),
		BusSlug:               strings.TrimSpace(req.BusSlug),
		PaymentMode:           req.PaymentMode,
		MinPrice:              req.MinPrice,
		MaxPrice:              req.MaxPrice,
		Search:                strings.TrimSpace(req.Search),
		Page:                  req.Page,
		PageSize:              req.PageSize,
	}, nil
}

func (h *Handler) handleOrganization(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, analytics.Scope{})
}

func (h *Handler) handleBranch(w http.ResponseWriter, r *http.Request) {
	scope, ok := branchScope(w, r)
	if !ok {
		return
	}
	h.serveReport(w, r, scope)
}

func (h *Handler) handleOrganizationCSV(w http.ResponseWriter, r *http.Request) {
	h.serveCSV(w, r, analytics.Scope{})
}

func (h *Handler) handleBranchCSV(w http.ResponseWriter, r *http.Request) {
	scope, ok := branchScope(w, r)
	if !ok {
		return
	}
	h.serveCSV(w, r, scope)
}

func branchScope(w http.ResponseWriter, r *http.Request) (analytics.Scope, bool) {
	p, _ := shared.PrincipalFromContext(r.Context())
	if p.OfficeID == "" {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "branch access denied")
		return analytics.Scope{}, false
	}
	return analytics.Scope{OfficeID: p.OfficeID}, true
}

func (h *Handler) serveReport(w http.ResponseWriter, r *http.Request, scope analytics.Scope) {
	report, ok := h.loadReport(w, r, scope)
	if !ok {
		return
	}
	httpx.OK(w, http.StatusOK, "Analytics data retrieved successfully", report)
}

func (h *Handler) serveCSV(w http.ResponseWriter, r *http.Request, scope analytics.Scope) {
	report, ok := h.loadReport(w, r, scope)
	if !ok {
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteSummaryCSV(buf, report.Summary); err != nil {
		h.handleServerError(w, "write summary csv", err)
		return
	}
	buf.WriteString("\n")
	if err := export.WriteRowsCSV(buf, report.Data); err != nil {
		h.handleServerError(w, "write rows csv", err)
		return
	}

	filename := fmt.Sprintf("shipments-%s.csv", h.now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) loadReport(w http.ResponseWriter, r *http.Request, scope analytics.Scope) (analytics.Report, bool) {
	var req filterRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return analytics.Report{}, false
		}
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return analytics.Report{}, false
	}
	filter, err := req.toFilter()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return analytics.Report{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Report(ctx, scope, filter)
	if err != nil {
		h.handleServerError(w, "load report", err)
		return analytics.Report{}, false
	}
	return report, true
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	httpx.RespondError(w, err)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}

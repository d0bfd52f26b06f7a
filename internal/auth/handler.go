package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	authenticator *Authenticator
	validator     *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authenticator *Authenticator) *Handler {
	return &Handler{
		logger:        logger,
		service:       service,
		authenticator: authenticator,
		validator:     validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/token", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)
	r.Group(func(r chi.Router) {
		r.Use(h.authenticator.Middleware)
		r.Post("/logout", h.handleLogout)
		r.Get("/profile", h.handleProfile)
	})
}

type loginRequest struct {
	Username  string    `json:"username" validate:"required,max=150"`
	Password  string    `json:"password" validate:"required"`
	LoginType LoginType `json:"login_type" validate:"required,oneof=organization branch"`
}

type refreshRequest struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	pair, user, err := h.service.Login(r.Context(), req.Username, req.Password, req.LoginType)
	if err != nil {
		h.logFailure("login", err, slog.String("username", req.Username))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("login", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	httpx.OK(w, http.StatusOK, "Login successful", pair)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	pair, err := h.service.Refresh(r.Context(), req.Refresh, req.Access)
	if err != nil {
		h.logFailure("refresh", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Token refreshed", pair)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	if err := h.service.Logout(r.Context(), claims); err != nil {
		h.logFailure("logout", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Logged out", map[string]string{"status": "logged out"})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	httpx.OK(w, http.StatusOK, "Profile fetched", p)
}

func (h *Handler) logFailure(op string, err error, attrs ...any) {
	if h.logger == nil {
		return
	}
	attrs = append(attrs, slog.Any("error", err))
	if errors.Is(err, httpx.ErrUnauthorized) {
		h.logger.Info(op+" rejected", attrs...)
		return
	}
	h.logger.Error(op+" failed", attrs...)
}

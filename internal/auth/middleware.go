package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/shared"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified access token claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return c, ok
}

// Authenticator verifies bearer tokens and places the principal in context.
type Authenticator struct {
	service *Service
	logger  *slog.Logger
	// AllowQueryToken accepts ?token= for clients that cannot set headers,
	// such as browser websocket handshakes.
	AllowQueryToken bool
}

// NewAuthenticator constructs the middleware.
func NewAuthenticator(service *Service, logger *slog.Logger) *Authenticator {
	return &Authenticator{service: service, logger: logger}
}

// WithQueryToken returns a copy that also reads the token query parameter.
func (a *Authenticator) WithQueryToken() *Authenticator {
	cp := *a
	cp.AllowQueryToken = true
	return &cp
}

// Middleware rejects requests without a valid access token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := a.tokenFrom(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authorization header is required")
			return
		}
		claims, err := a.service.Authenticate(r.Context(), raw)
		if err != nil {
			if errors.Is(err, httpx.ErrUnavailable) {
				a.logger.Error("authenticate", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		principal, err := claims.Principal()
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), principal)
		ctx = context.WithValue(ctx, claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) tokenFrom(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	if a.AllowQueryToken {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

package rbac

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// Middleware guards routes by permission or role. It must run after the
// authenticator has placed a principal in context.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAny admits principals holding at least one of perms.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.guard(strings.Join(perms, "|"), func(p shared.Principal, r *http.Request) bool {
		return m.Service.Grants(r.Context(), p).Any(perms...)
	})
}

// RequireAll admits principals holding every one of perms.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.guard(strings.Join(perms, "&"), func(p shared.Principal, r *http.Request) bool {
		return m.Service.Grants(r.Context(), p).All(perms...)
	})
}

// RequireRole admits only principals holding one of roles.
func (m Middleware) RequireRole(roles ...shared.Role) func(http.Handler) http.Handler {
	return m.guard("role", func(p shared.Principal, _ *http.Request) bool {
		return slices.Contains(roles, p.Role)
	})
}

func (m Middleware) guard(rule string, allow func(shared.Principal, *http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if !allow(p, r) {
				if m.Logger != nil {
					m.Logger.Debug("rbac denied",
						slog.String("path", r.URL.Path),
						slog.String("role", string(p.Role)),
						slog.String("rule", rule))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "not permitted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

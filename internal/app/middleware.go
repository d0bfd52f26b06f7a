package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/parcelhub/parcelhub/internal/observability"
	"github.com/parcelhub/parcelhub/internal/platform/httpx"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRateLimit      = 120
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack returns the global chain. Authentication is mounted per
// route group because public tracking needs no token.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout, limit := defaultRequestTimeout, defaultRateLimit
	production := false
	if c := cfg.Config; c != nil {
		if c.AppRequestTimeout > 0 {
			timeout = c.AppRequestTimeout
		}
		if c.AppRateLimit > 0 {
			limit = c.AppRateLimit
		}
		production = c.IsProduction()
	}

	chain := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		accessLog(logger),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		securityHeaders(logger, production),
		middleware.Compress(5, "application/json", "text/csv"),
		httprate.Limit(limit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded, retry later")
			}),
		),
	}
	if cfg.Metrics != nil {
		chain = append(chain, cfg.Metrics.Middleware)
	}
	return chain
}

// securityHeaders sets the API's browser hardening headers. Production also
// redirects plain HTTP, trusting X-Forwarded-Proto from the ingress.
func securityHeaders(logger *slog.Logger, production bool) func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            stsSeconds(production),
		IsDevelopment:         !production,
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Process answers the request itself (the https redirect) when it fails.
			if err := sec.Process(w, r); err != nil {
				logger.Debug("request answered by security policy", slog.String("path", r.URL.Path), slog.Any("error", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stsSeconds(production bool) int64 {
	if production {
		return 31536000
	}
	return 0
}

// accessLog writes one structured line per request.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				level := slog.LevelInfo
				if ww.Status() >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.LogAttrs(r.Context(), level, "http request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("remote", r.RemoteAddr),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

package auth

import (
	"log/slog"
	"net/http"

	"github.com/molmute/molmute/pkg/observability"
	"github.com/molmute/molmute/pkg/storage"
)

// DefaultBypassEndpoints lists paths that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}

// Middleware enforces the chain on every request outside the bypass
// list, applies the rate limiter when one is given, and injects the
// identity and tenant into the request context.
func Middleware(chain *Chain, limiter RateLimiter, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]struct{}, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := bypass[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)
			switch {
			case result.Decision == Deny:
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				writeJSONError(w, http.StatusUnauthorized,
					`{"error":{"type":"invalid_request","message":"authentication required"}}`)
				return
			case result.Decision != Allow || result.Identity == nil:
				writeJSONError(w, http.StatusUnauthorized,
					`{"error":{"type":"invalid_request","message":"authentication required"}}`)
				return
			case result.Identity.Subject == "":
				slog.Error("authenticator returned identity with empty subject")
				writeJSONError(w, http.StatusInternalServerError,
					`{"error":{"type":"server_error","message":"internal authentication error"}}`)
				return
			}

			identity := result.Identity
			slog.Debug("authentication succeeded", "subject", identity.Subject, "path", r.URL.Path)

			if limiter != nil {
				if err := limiter.Allow(r.Context(), identity); err != nil {
					slog.Warn("rate limit exceeded",
						"subject", identity.Subject,
						"tier", identity.ServiceTier,
					)
					observability.RateLimitRejectedTotal.WithLabelValues(identity.ServiceTier).Inc()
					writeJSONError(w, http.StatusTooManyRequests,
						`{"error":{"type":"too_many_requests","message":"rate limit exceeded"}}`)
					return
				}
			}

			ctx := SetIdentity(r.Context(), identity)
			if tenantID := identity.TenantID(); tenantID != "" {
				ctx = storage.SetTenant(ctx, tenantID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body + "\n"))
}

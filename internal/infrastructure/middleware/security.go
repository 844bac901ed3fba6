package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"storefront-identity-layer/internal/domain"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Headers set by the upstream gateway
const (
	InternalSecretHeader = "X-Internal-Secret"
	StoreDomainHeader    = "X-Store-Domain"
	UserEmailHeader      = "X-User-Email"
)

// SecurityHeadersMiddleware sets conservative response headers
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			if !strings.HasPrefix(r.URL.Path, "/swagger/") {
				h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuditLoggingMiddleware logs one line per request. Query strings are left
// out because OAuth callbacks carry codes and signatures.
func AuditLoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info().
				Str("requestId", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Str("remoteAddr", r.RemoteAddr).
				Dur("duration", time.Since(start)).
				Msg("Audit")
		})
	}
}

// SharedSecretMiddleware rejects requests whose header does not match secret.
// An empty secret disables the routes it guards.
func SharedSecretMiddleware(header, secret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				logger.Error().Str("path", r.URL.Path).Msg("Shared secret not configured")
				writeError(w, http.StatusServiceUnavailable, "endpoint not configured")
				return
			}
			if !SecretsEqual(r.Header.Get(header), secret) {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remoteAddr", r.RemoteAddr).
					Msg("Rejected request with invalid shared secret")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CallerMiddleware puts the gateway-asserted store domain and email in the
// request context
func CallerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			storeDomain := strings.TrimSpace(r.Header.Get(StoreDomainHeader))
			email := strings.TrimSpace(r.Header.Get(UserEmailHeader))
			if storeDomain == "" || email == "" {
				writeError(w, http.StatusBadRequest, StoreDomainHeader+" and "+UserEmailHeader+" headers are required")
				return
			}
			ctx := domain.WithCaller(r.Context(), storeDomain, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SecretsEqual compares two secrets in constant time
func SecretsEqual(provided, expected string) bool {
	if provided == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

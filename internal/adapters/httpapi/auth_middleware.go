package httpapi

import (
	"net/http"
	"strings"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/platform/auth/jwtverifier"
)

// NewAuthMiddleware enforces Authorization: Bearer <JWT> for all API endpoints.
//
// On success, it stores the authenticated caller address (JWT `sub`) in
// request context. The subject claim carries the caller's ledger address.
func NewAuthMiddleware(v *jwtverifier.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isUnauthenticatedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authz := r.Header.Get("Authorization")
			if authz == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing Authorization header", nil)
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "malformed Authorization header", nil)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
			if raw == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}

			sub, err := v.Verify(r.Context(), raw)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
				return
			}

			caller := domain.NormalizeAddress(sub)
			if caller == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "empty subject", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It accepts an explicit caller address via X-Debug-Subject and stores it in
// request context. If the header is absent, it falls back to defaultCaller
// (if provided).
//
// This is intended for local Docker workflows where standing up an OIDC
// provider + JWKS is overkill. Do NOT use this in production deployments.
func NewDevAuthMiddleware(defaultCaller string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isUnauthenticatedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			caller := domain.NormalizeAddress(r.Header.Get("X-Debug-Subject"))
			if caller == "" {
				caller = domain.NormalizeAddress(defaultCaller)
			}
			if caller == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject (set X-Debug-Subject)", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// Health and metrics endpoints are used by infra checks and scrapers and are
// deliberately unauthenticated.
func isUnauthenticatedPath(path string) bool {
	return path == "/healthz" || path == "/metrics"
}

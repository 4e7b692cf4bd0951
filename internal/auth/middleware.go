package auth

import (
	"net/http"

	"github.com/demenago/devis-saas/internal/httpx"
	"github.com/demenago/devis-saas/internal/scope"
)

// Middleware attaches the principal to the request context if present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := ParseSession(r); ok {
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth returns 401 JSON when no valid principal is attached.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			httpx.JSONError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole guards a route group: 401 without a principal, 403 on a role
// mismatch.
func RequireRole(role scope.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			httpx.JSONError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, nil)
			return
		}
		if p.Role != role {
			httpx.JSONError(w, http.StatusForbidden, httpx.CodeForbidden, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

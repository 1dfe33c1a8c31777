package auth

import (
	"net/http"
	"strings"

	"github.com/example/app-catalog/internal/platform/api"
	"github.com/example/app-catalog/internal/platform/httpserver"
)

// RequireRole lets a request through only when RequireUser has already put
// the given role into the context. Roles compare case-insensitively.
func RequireRole(role string) func(http.Handler) http.Handler {
	want := strings.ToLower(strings.TrimSpace(role))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ := RoleFromContext(r.Context())
			if want == "" || strings.ToLower(strings.TrimSpace(got)) != want {
				api.Forbidden(w, api.CodeForbidden, role+" role required", httpserver.RequestIDFromContext(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireRole(RoleAdmin).
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(RoleAdmin)(next)
}

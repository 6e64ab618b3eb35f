package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/example/discussion-platform/internal/platform/api"
	"github.com/example/discussion-platform/internal/platform/httpserver"
)

// IsAdmin reports whether the token role in ctx is admin.
func IsAdmin(ctx context.Context) bool {
	role, _ := RoleFromContext(ctx)
	return strings.EqualFold(strings.TrimSpace(role), "admin")
}

// RequireAdmin must run after RequireUser; it admits only the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			api.Forbidden(w, "FORBIDDEN", "admin role required", httpserver.RequestIDFromContext(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

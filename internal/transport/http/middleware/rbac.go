package middleware

import (
	"log/slog"
	"net/http"

	"perfeval/internal/domain/auth"
	"perfeval/internal/transport/http/api"
)

// RequirePermission gates a route by role. Ownership of individual
// evaluations is decided by the evaluation service.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if !auth.HasPermission(actor.Role, permission) {
				slog.Info("permission denied", "actor_id", actor.UserID, "role", actor.Role, "permission", permission, "path", r.URL.Path)
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

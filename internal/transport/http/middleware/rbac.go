package middleware

import (
	"context"
	"net/http"

	"pms/internal/requestctx"
	"pms/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, role, permission string) (bool, error)
}

// RequirePermission admits callers whose role grants permission. A denied
// caller gets 403 naming the missing permission.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := GetRequestID(ctx)
			user, ok := GetUser(ctx)
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
				return
			}

			allowed, err := store.HasPermission(ctx, user.Role, permission)
			switch {
			case err != nil:
				requestctx.Logger(ctx).Error("permission lookup failed", "permission", permission, "err", err)
				api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", reqID)
			case !allowed:
				requestctx.Logger(ctx).Info("permission denied", "role", user.Role, "permission", permission)
				api.FailWithDetails(w, http.StatusForbidden, "forbidden", "insufficient permissions",
					map[string]string{"permission": permission}, reqID)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

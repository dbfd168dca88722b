package middleware

import (
	"net/http"
	"slices"

	"shop-api/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleAdmin}, logger)
}

// RequireRole middleware ensures the user has one of the specified roles.
// It must run after AuthMiddleware.
func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				logger.Warn("User not found in context", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
				return
			}

			if !slices.Contains(allowedRoles, user.Role) {
				logger.Warn("User role not authorized",
					zap.String("user_id", user.ID.String()),
					zap.String("role", user.Role),
					zap.Strings("allowed_roles", allowedRoles),
				)
				RespondWithError(w, http.StatusForbidden, "You do not have permission to perform this action.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"shop-api/internal/domain"
	"shop-api/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const principalKey contextKey = "principal"

// TokenValidator turns a bearer token into verified claims
type TokenValidator interface {
	ValidateToken(tokenString string) (*service.Claims, error)
}

// AuthMiddleware validates JWT access tokens and stores the caller in the
// request context
func AuthMiddleware(tokens TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || scheme != "Bearer" || tokenString == "" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := tokens.ValidateToken(tokenString)
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, service.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			user := &domain.User{
				ID:       claims.UserID,
				Username: claims.Username,
				Email:    claims.Email,
				Role:     claims.Role,
			}

			logger.Debug("User authenticated",
				zap.String("user_id", user.ID.String()),
				zap.String("role", user.Role),
			)

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying the authenticated user
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// CurrentUser returns the authenticated user, built from the token claims
func CurrentUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(principalKey).(*domain.User)
	return user, ok && user != nil
}

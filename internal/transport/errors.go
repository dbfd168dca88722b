package transport

import (
	"errors"
	"net/http"

	"shop-api/internal/middleware"
	"shop-api/internal/repository"
	"shop-api/internal/service"

	"go.uber.org/zap"
)

// respondError maps service and repository errors onto HTTP responses.
// Anything unrecognised is logged and reported as a 500.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var (
		itemErrs  service.ItemErrors
		fieldErrs *service.ValidationError
	)

	switch {
	case errors.As(err, &itemErrs):
		middleware.RespondWithJSON(w, http.StatusBadRequest, itemErrorsBody(itemErrs))
	case errors.As(err, &fieldErrs):
		middleware.RespondWithFieldErrors(w, fieldErrs.Fields)

	case errors.Is(err, service.ErrAuthenticationRequired):
		middleware.RespondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.RespondWithError(w, http.StatusUnauthorized, "No active account found with the given credentials")
	case errors.Is(err, service.ErrTokenExpired):
		middleware.RespondWithError(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, service.ErrInvalidToken):
		middleware.RespondWithError(w, http.StatusUnauthorized, "Token is invalid or expired")
	case errors.Is(err, service.ErrPermissionDenied):
		middleware.RespondWithError(w, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.Is(err, service.ErrInvalidStatusTransition):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "Not found.")

	case errors.Is(err, repository.ErrCategorySlugExists):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrProductInUse):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())

	default:
		middleware.LoggerFrom(r.Context(), logger).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

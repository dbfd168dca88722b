package middleware

import (
	"context"
	"net/http"
	"time"

	"shop-api/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// LoggingMiddleware logs HTTP requests and responses. Handlers reach the
// request-scoped logger, tagged with the chi request id, via LoggerFrom.
func LoggingMiddleware(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := middleware.GetReqID(r.Context())
			reqLogger := base.With(zap.String("request_id", requestID))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLogger.Debug("Request started",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			)

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLogger)))

			status := ww.Status()
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}

			switch {
			case status >= http.StatusInternalServerError:
				reqLogger.Error("Request completed", fields...)
			case status >= http.StatusBadRequest:
				reqLogger.Warn("Request completed", fields...)
			default:
				reqLogger.Info("Request completed", fields...)
			}
		})
	}
}

// LoggerFrom returns the request-scoped logger stored by LoggingMiddleware
func LoggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	return logger.FromContext(ctx, fallback)
}

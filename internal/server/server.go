package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shop-api/internal/config"
	"shop-api/internal/database"
	custommiddleware "shop-api/internal/middleware"
	"shop-api/internal/notification"
	"shop-api/internal/repository"
	"shop-api/internal/service"
	"shop-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
	users  service.UserService
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service) (*Server, error) {
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := db.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	mailer, err := notification.NewMailer(cfg.Notify, logger)
	if err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}
	notifier := notification.NewEmailNotifier(mailer, cfg.Notify.FromEmail, logger)

	// Repositories
	userRepo := repository.NewUserRepository(db.DB())
	refreshTokenRepo := repository.NewRefreshTokenRepository(db.DB())
	categoryRepo := repository.NewCategoryRepository(db.DB())
	productRepo := repository.NewProductRepository(db.DB())
	orderRepo := repository.NewOrderRepository(db.DB())

	// Services
	userService := service.NewUserService(userRepo, refreshTokenRepo, notifier, service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL(),
		RefreshTTL: cfg.JWT.RefreshTTL(),
	}, logger)
	catalogService := service.NewCatalogService(categoryRepo, productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, notifier, logger)

	authMiddleware := custommiddleware.AuthMiddleware(userService, logger)
	adminOnly := custommiddleware.RequireAdmin(logger)
	authRateLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		KeyPrefix:         "ratelimit:auth",
	}, logger)

	router.Route("/api/v1", func(r chi.Router) {
		transport.NewUserHandler(userService, logger).RegisterRoutes(r, authMiddleware, authRateLimit)
		transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(r, authMiddleware, adminOnly)
		transport.NewOrderHandler(orderService, logger).RegisterRoutes(r, authMiddleware, adminOnly)
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
		users:  userService,
	}

	return server, nil
}

// BootstrapAdmin creates the configured admin account if it does not exist
func (s *Server) BootstrapAdmin(ctx context.Context) error {
	admin := s.config.Admin
	if admin.Username == "" || admin.Password == "" {
		s.logger.Debug("Admin bootstrap disabled")
		return nil
	}
	return s.users.EnsureAdmin(ctx, admin.Username, admin.Email, admin.Password)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

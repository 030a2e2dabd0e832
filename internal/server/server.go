package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"zen-storefront/internal/codestore"
	"zen-storefront/internal/config"
	"zen-storefront/internal/feed"
	custommiddleware "zen-storefront/internal/middleware"
	"zen-storefront/internal/notification"
	"zen-storefront/internal/repository"
	"zen-storefront/internal/service"
	"zen-storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
	hub    *feed.Hub
}

// NewServer wires repositories, services and handlers. redisClient may be nil,
// in which case rate limiting is off and sign-in codes live in memory.
func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) (*Server, error) {
	shippingRate, err := decimal.NewFromString(cfg.Ledger.ShippingFlatRate)
	if err != nil || shippingRate.IsNegative() {
		return nil, fmt.Errorf("invalid shipping flat rate %q", cfg.Ledger.ShippingFlatRate)
	}

	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			custommiddleware.RespondWithError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Notification channels: email (or the log in development) plus the
	// live admin feed.
	hub := feed.NewHub(cfg.Server.AllowedOrigins, logger)
	var sender notification.Dispatcher
	if cfg.Notification.ProviderURL != "" {
		sender = notification.NewEmailSender(
			cfg.Notification.ProviderURL,
			cfg.Notification.APIKey,
			cfg.Notification.From,
			cfg.Notification.Timeout,
			logger,
		)
	} else {
		logger.Warn("No email provider configured, notifications are only logged")
		sender = notification.NewLogSender(logger)
	}
	dispatcher := notification.Multi{sender, hub}

	codes := newCodeStore(cfg, redisClient, logger)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	productRepo := repository.NewProductRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	wishlistRepo := repository.NewWishlistRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Initialize services
	ledger := service.LedgerSettings{
		OrderNumberPrefix: cfg.Ledger.OrderNumberPrefix,
		ShippingFlatRate:  shippingRate,
		AdminEmail:        cfg.Notification.AdminEmail,
		NotifyTimeout:     cfg.Notification.Timeout,
	}
	userService := service.NewUserService(userRepo, refreshTokenRepo, codes, dispatcher, service.AuthSettings{
		JWTSecret:     cfg.JWT.Secret,
		AccessTTL:     time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshTTL:    time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
		TwoFactorTTL:  cfg.TwoFactor.CodeTTL,
		NotifyTimeout: cfg.Notification.Timeout,
	}, logger)
	catalogService := service.NewCatalogService(productRepo, logger)
	couponService := service.NewCouponService(couponRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, couponService, dispatcher, ledger, logger)
	reviewService := service.NewReviewService(reviewRepo, logger)
	wishlistService := service.NewWishlistService(wishlistRepo, productRepo)
	inventoryService := service.NewInventoryService(productRepo, alertRepo, dispatcher, ledger, cfg.Ledger.LowStockThreshold, logger)
	dashboardService := service.NewDashboardService(orderRepo, productRepo, cfg.Ledger.LowStockThreshold, logger)

	// Create auth middleware
	guards := transport.Guards{
		Auth:     custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger),
		Optional: custommiddleware.OptionalAuth(cfg.JWT.Secret, logger),
		Admin:    custommiddleware.RequireAdmin(logger),
	}

	// Register routes
	router.Route("/api", func(r chi.Router) {
		if redisClient != nil {
			r.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "ratelimit",
			}, logger))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
			r.Use(middleware.Compress(5))

			transport.NewUserHandler(userService, logger).RegisterRoutes(r, guards)
			transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(r, guards)
			transport.NewOrderHandler(orderService, logger).RegisterRoutes(r, guards)
			transport.NewCouponHandler(couponService, logger).RegisterRoutes(r, guards)
			transport.NewReviewHandler(reviewService, logger).RegisterRoutes(r, guards)
			transport.NewWishlistHandler(wishlistService, logger).RegisterRoutes(r, guards)
			transport.NewNotificationHandler(inventoryService, orderService, logger).RegisterRoutes(r, guards)
		})

		// The websocket feed is long lived and hijacks the connection, so
		// it stays outside the timeout and compression group.
		transport.NewAdminHandler(dashboardService, hub, logger).RegisterRoutes(r, guards)
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
		hub:    hub,
	}

	return server, nil
}

func newCodeStore(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) codestore.Store {
	if cfg.TwoFactor.Store == "redis" {
		if redisClient != nil {
			return codestore.NewRedisStore(redisClient, "zen")
		}
		logger.Warn("Redis unavailable, sign-in codes are kept in memory and lost on restart")
	}
	return codestore.NewMemoryStore()
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	s.hub.Close()

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/pizza-orders-backend/internal/adapters/primary/http"
	mw "github.com/lorrc/pizza-orders-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/pizza-orders-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/pizza-orders-backend/internal/adapters/secondary/email"
	"github.com/lorrc/pizza-orders-backend/internal/adapters/secondary/postgres"
	"github.com/lorrc/pizza-orders-backend/internal/adapters/secondary/relay"
	"github.com/lorrc/pizza-orders-backend/internal/adapters/secondary/storage"
	"github.com/lorrc/pizza-orders-backend/internal/auth"
	"github.com/lorrc/pizza-orders-backend/internal/config"
	"github.com/lorrc/pizza-orders-backend/internal/core/bus"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	"github.com/lorrc/pizza-orders-backend/internal/core/services"
	"github.com/lorrc/pizza-orders-backend/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(logger)

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Database Pool
	if cfg.Database.AutoMigrate {
		version, err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath)
		if err != nil {
			return err
		}
		logger.Info("database migrations applied", "version", version)
	}

	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("database connection established")

	// 4. Notification bus
	policy, err := bus.ParseSubscriberPolicy(cfg.Bus.SubscriberPolicy)
	if err != nil {
		return err
	}
	notificationBus := bus.New(logger, bus.WithSubscriberPolicy(policy))

	// 5. Repositories (Secondary Adapters)
	txManager := postgres.NewTransactionManager(pool)
	userRepo := postgres.NewUserRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool, txManager)
	menuRepo := postgres.NewMenuRepository(pool)

	images, err := storage.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes, logger)
	if err != nil {
		return err
	}

	// 6. Services (Core)
	authService := services.NewAuthService(userRepo)
	authzService := services.NewAuthorizationService(userRepo)
	orderService := services.NewOrderService(orderRepo, menuRepo, authzService, notificationBus)
	menuService := services.NewMenuService(menuRepo, images, authzService)

	if cfg.Admin.Email != "" {
		admin, created, err := services.SeedAdmin(ctx, userRepo, domain.UserRegistrationParams{
			Name:     cfg.Admin.Name,
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
		})
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		logger.Info("administrator ready", "admin_id", admin.ID, "created", created)
	}

	// 7. Real-time Components
	var authorizer websocket.JoinAuthorizer = websocket.NewOwnershipAuthorizer(orderService)
	if cfg.WebSocket.JoinPolicy == config.JoinPolicyOpen {
		authorizer = websocket.AllowAllAuthorizer{}
	}
	hub := websocket.NewHub(authorizer, logger)
	defer hub.Close()

	var gatewayOpts []websocket.GatewayOption
	var redisRelay *relay.RedisRelay
	if cfg.Redis.Enabled() {
		redisRelay, err = relay.NewRedisRelay(ctx, relay.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisRelay.Close(); err != nil {
				logger.Warn("failed to close redis relay", "error", err)
			}
		}()
		gatewayOpts = append(gatewayOpts, websocket.WithRelay(redisRelay))
	}

	gateway := websocket.NewGateway(hub, logger, gatewayOpts...)
	gateway.Subscribe(notificationBus)
	if err := gateway.Start(ctx); err != nil {
		return err
	}

	notifier := email.NewMockSMTPNotifier(userRepo, orderRepo, logger)
	notifier.Subscribe(notificationBus)
	defer notifier.Shutdown()

	// 8. Security & Rate Limiters
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	var generalRateLimiter, authRateLimiter *mw.RateLimiter
	var orderRateLimiter *mw.RateLimitByKey
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
		defer generalRateLimiter.Stop()

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
		defer authRateLimiter.Stop()

		orderRateLimiter = mw.NewRateLimitByKey(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst)
		defer orderRateLimiter.Stop()
	}

	// 9. Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)

	healthDeps := []httpAdapter.Dependency{{Name: "database", Checker: pool}}
	if redisRelay != nil {
		healthDeps = append(healthDeps, httpAdapter.Dependency{Name: "redis", Checker: redisRelay, Optional: true})
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		Auth:           httpAdapter.NewAuthHandler(authService, tokenManager, errorHandler, logger),
		Me:             httpAdapter.NewMeHandler(authzService, errorHandler, logger),
		Menu:           httpAdapter.NewMenuHandler(menuService, cfg.Uploads.URLPrefix, cfg.Uploads.MaxBytes, errorHandler, logger),
		Orders:         httpAdapter.NewOrderHandler(orderService, errorHandler, logger),
		WebSocket:      httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger),
		Health:         httpAdapter.NewHealthHandler(cfg.App.Version, healthDeps...),
		TokenManager:   tokenManager,
		Logger:         logger,
		GeneralLimiter: generalRateLimiter,
		AuthLimiter:    authRateLimiter,
		OrderLimiter:   orderRateLimiter,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		UploadsDir:     images.Dir(),
		UploadsPrefix:  cfg.Uploads.URLPrefix,
	})

	// 10. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	// Apply database configuration
	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return pool, nil
}

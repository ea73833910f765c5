package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dkotama/jastip-api/internal/handlers"
	"github.com/dkotama/jastip-api/internal/platform/auth"
	"github.com/dkotama/jastip-api/internal/platform/config"
	"github.com/dkotama/jastip-api/internal/platform/idempotency"
	"github.com/dkotama/jastip-api/internal/platform/observability"
	"github.com/dkotama/jastip-api/internal/platform/postgres"
	platformstorage "github.com/dkotama/jastip-api/internal/platform/storage"
	"github.com/dkotama/jastip-api/internal/repositories"
	pgrepos "github.com/dkotama/jastip-api/internal/repositories/postgres"
	"github.com/dkotama/jastip-api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("configuration incomplete", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := postgres.Open(ctx, postgres.Config{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("postgres close error", zap.Error(err))
		}
	}()

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, db, pgrepos.Migrations); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	storageClient, err := platformstorage.NewClient(ctx, platformstorage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
	})
	if err != nil {
		logger.Fatal("failed to initialise object storage client", zap.Error(err))
	}

	settingsRepo, err := pgrepos.NewSettingsRepository(db)
	if err != nil {
		logger.Fatal("failed to initialise settings repository", zap.Error(err))
	}
	itemRepo, err := pgrepos.NewItemRepository(db)
	if err != nil {
		logger.Fatal("failed to initialise item repository", zap.Error(err))
	}
	userRepo, err := pgrepos.NewUserRepository(db)
	if err != nil {
		logger.Fatal("failed to initialise user repository", zap.Error(err))
	}
	tokenRepo, err := pgrepos.NewTokenRepository(db)
	if err != nil {
		logger.Fatal("failed to initialise token repository", zap.Error(err))
	}
	orderRepo, err := pgrepos.NewOrderRepository(db)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}

	settingsService, err := services.NewSettingsService(services.SettingsServiceDeps{
		Settings: settingsRepo,
		Items:    itemRepo,
		Clock:    time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise settings service", zap.Error(err))
	}
	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Items:    itemRepo,
		Settings: settingsRepo,
		Clock:    time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}
	tokenService, err := services.NewTokenService(services.TokenServiceDeps{
		Tokens: tokenRepo,
		Clock:  time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise token service", zap.Error(err))
	}
	userService, err := services.NewUserService(services.UserServiceDeps{
		Users:  userRepo,
		Tokens: tokenService,
		Clock:  time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise user service", zap.Error(err))
	}
	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   orderRepo,
		Items:    itemRepo,
		Settings: settingsRepo,
		Clock:    time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}
	assetService, err := services.NewAssetService(services.AssetServiceDeps{
		Store:        storageClient,
		MaxBytes:     cfg.Uploads.MaxBytes,
		ContentTypes: cfg.Uploads.AllowedContentTypes,
	})
	if err != nil {
		logger.Fatal("failed to initialise asset service", zap.Error(err))
	}
	systemService, err := newSystemService(db, storageClient)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	sessions, err := auth.NewSessionManager(auth.SessionManagerDeps{
		Secret:     []byte(cfg.Security.JWTSecret),
		SessionTTL: cfg.Security.SessionTTL,
		TempTTL:    cfg.Security.TempSessionTTL,
	})
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}
	googleClient, err := auth.NewGoogleClient(auth.GoogleClientDeps{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
	})
	if err != nil {
		logger.Fatal("failed to initialise google oauth client", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(sessions,
		auth.WithUserStatusChecker(userService),
		auth.WithAdminPasswordSource(settingsService),
	)

	publicHandlers := handlers.NewPublicHandlers(settingsService, catalogService, assetService)
	authHandlers, err := handlers.NewAuthHandlers(handlers.AuthHandlersDeps{
		Sessions:       sessions,
		Google:         googleClient,
		Users:          userService,
		RequireSession: authenticator.RequireSession(),
		FrontendURL:    cfg.OAuth.FrontendURL,
		SecureCookies:  cfg.Security.SecureCookies,
	})
	if err != nil {
		logger.Fatal("failed to initialise auth handlers", zap.Error(err))
	}
	orderReplayGuard := idempotency.Middleware(idempotency.NewMemoryStore(),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)
	orderHandlers := handlers.NewOrderHandlers(orderService, authenticator.RequireSession(), orderReplayGuard)
	adminHandlers, err := handlers.NewAdminHandlers(handlers.AdminHandlersDeps{
		Settings:     settingsService,
		Catalog:      catalogService,
		Tokens:       tokenService,
		Orders:       orderService,
		Assets:       assetService,
		RequireAdmin: authenticator.RequireAdmin(),
	})
	if err != nil {
		logger.Fatal("failed to initialise admin handlers", zap.Error(err))
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}
	if cfg.RateLimits.DefaultPerMinute > 0 {
		middlewares = append(middlewares, handlers.RateLimitByIP(cfg.RateLimits.DefaultPerMinute, time.Minute))
	}

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(systemService)),
		handlers.WithPublicRoutes(publicHandlers.Routes),
		handlers.WithAuthRoutes(authHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	}
	if cfg.RateLimits.AuthPerMinute > 0 {
		opts = append(opts, handlers.WithAuthMiddlewares(handlers.RateLimitByIP(cfg.RateLimits.AuthPerMinute, time.Minute)))
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("jastip api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newSystemService(db *sql.DB, storage *platformstorage.Client) (services.SystemService, error) {
	checks := make([]repositories.DependencyCheck, 0, 2)
	if db != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "postgres",
			Timeout: 1500 * time.Millisecond,
			Check:   db.PingContext,
		})
	}
	if storage != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "storage",
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				obj, err := storage.Get(ctx, "uploads/.healthcheck")
				if err == nil {
					return obj.Body.Close()
				}
				if errors.Is(err, platformstorage.ErrObjectNotFound) {
					return nil
				}
				return err
			},
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
	})
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/pixelvault/marketplace/internal/api/http"
	"github.com/pixelvault/marketplace/internal/api/http/handlers"
	"github.com/pixelvault/marketplace/internal/auth"
	"github.com/pixelvault/marketplace/internal/config"
	"github.com/pixelvault/marketplace/internal/events"
	"github.com/pixelvault/marketplace/internal/jobs"
	"github.com/pixelvault/marketplace/internal/observability"
	"github.com/pixelvault/marketplace/internal/payment"
	"github.com/pixelvault/marketplace/internal/persistence"
	"github.com/pixelvault/marketplace/internal/repository"
	"github.com/pixelvault/marketplace/internal/service"
	"github.com/pixelvault/marketplace/internal/session"
	"github.com/pixelvault/marketplace/internal/social"
	"github.com/pixelvault/marketplace/internal/storage"
	"github.com/pixelvault/marketplace/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.SecretDefault && !cfg.App.IsDev() {
		logger.Warn("AUTH_JWT_SECRET is unset; using the development secret", zap.String("env", cfg.App.Env))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	files, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.PublicURL)
	if err != nil {
		logger.Fatal("failed to prepare storage", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger.Named("events"))
	notificationService := service.NewNotificationService(dispatcher, logger.Named("notifications"), cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger.Named("notifications"))

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	imageRepo := repository.NewImageRepository(pool)
	planRepo := repository.NewPlanRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	transactionRepo := repository.NewTransactionRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	sessions := session.NewStore(redis.Client, cfg.Session.TTL())
	codec := auth.NewTokenCodec(cfg.Auth.JWTSecret)
	resolver := auth.NewResolver(logger.Named("auth"), metrics,
		auth.NewTokenStrategy(codec),
		auth.NewSessionStrategy(sessions, cfg.Session.CookieName),
	)
	cookies := auth.CookieSettings{
		Secure:            cfg.Auth.CookieSecure,
		Domain:            cfg.Auth.CookieDomain,
		SessionCookieName: cfg.Session.CookieName,
	}

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Sessions:   sessions,
		Codec:      codec,
		Dispatcher: dispatcher,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	catalogService := service.NewCatalogService(service.CatalogDependencies{
		CategoryRepo: categoryRepo,
		ImageRepo:    imageRepo,
		UserRepo:     userRepo,
		Files:        files,
		Dispatcher:   dispatcher,
	})
	billingService := service.NewBillingService(service.BillingDependencies{
		PlanRepo:        planRepo,
		CouponRepo:      couponRepo,
		TransactionRepo: transactionRepo,
		UserRepo:        userRepo,
		Gateway:         payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.KeyID, cfg.Payment.KeySecret),
		Dispatcher:      dispatcher,
		Currency:        cfg.Payment.Currency,
	})
	userService := service.NewUserService(userRepo)
	statsService := service.NewStatsService(userRepo, imageRepo, transactionRepo)
	settingsService := service.NewSettingsService(settingsRepo)

	var socialProvider *social.Provider
	if cfg.OIDC.Enabled() {
		socialProvider, err = social.NewProvider(ctx, cfg.OIDC, cookies, authService, logger)
		if err != nil {
			logger.Fatal("failed to init social login", zap.Error(err))
		}
	}

	expiry := jobs.NewPremiumExpiryJob(userRepo, logger.Named("jobs"))
	if err := expiry.Start(ctx, cfg.Jobs.PremiumExpirySpec); err != nil {
		logger.Fatal("failed to schedule premium expiry", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: 25 * 1024 * 1024,
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        metrics,
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.App.AllowedOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Account:        handlers.NewAccountHandler(authService, cookies),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		Billing:        handlers.NewBillingHandler(billingService),
		Admin:          handlers.NewAdminHandler(userService, statsService),
		Settings:       handlers.NewSettingsHandler(settingsService),
		Social:         socialProvider,
		AuthMiddleware: auth.NewMiddleware(resolver),
		Metrics:        metrics.Handler(),
		AuthRateLimit:  cfg.App.AuthRateLimit,
		UploadsPath:    localUploadsPath(cfg.Storage.PublicURL),
		UploadsDir:     cfg.Storage.Dir,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	expiry.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// localUploadsPath returns the path to serve uploads on, or "" when files live behind an absolute URL.
func localUploadsPath(publicURL string) string {
	if strings.HasPrefix(publicURL, "/") {
		return publicURL
	}
	return ""
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

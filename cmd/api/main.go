package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/authz"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/gateway"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/policy"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.Enabled() {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store := gateway.NewClient(cfg.Gateway, logger, metrics)
	var policyRepo service.PolicyPersister
	if pg.Enabled() {
		policyRepo = repository.NewPolicyRepository(pg.PoolHandle())
	}
	policyCache := persistence.NewPolicyCache(redis)
	activityCache := persistence.NewActivityCache(redis, 4*cfg.Activity.PollInterval())

	policies := policy.NewStore(service.LoadInitialPolicy(ctx, policyCache, policyRepo, logger))
	engine := authz.NewEngine(policies, metrics)

	dispatcher := events.NewInMemoryDispatcher()
	quality := service.NewDataQualityReporter(logger, metrics, dispatcher)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Store:   store,
		Quality: quality,
		Logger:  logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		Store:             store,
		Authz:             engine,
		Dispatcher:        dispatcher,
		Quality:           quality,
		Logger:            logger,
		BcryptCost:        cfg.Auth.BcryptCost,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		Store:             store,
		Authz:             engine,
		Dispatcher:        dispatcher,
		Quality:           quality,
		Logger:            logger,
		OverdueAfter:      cfg.Lifecycle.OverdueAfter(),
		StrictConcurrency: cfg.Lifecycle.StrictConcurrency,
	})
	customerService := service.NewCustomerService(store, engine, quality, nil)
	intakeService := service.NewIntakeService(service.IntakeDependencies{
		Customers:  store,
		Complaints: store,
		Quality:    quality,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	policyService := service.NewPolicyService(service.PolicyDependencies{
		Store:      policies,
		Repo:       policyRepo,
		Cache:      policyCache,
		Authz:      engine,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		Store:     store,
		Cache:     activityCache,
		Authz:     engine,
		Logger:    logger,
		FeedLimit: cfg.Activity.FeedLimit,
	})

	worker.StartNotificationWorker(dispatcher, logger)
	poller := worker.NewActivityPoller(store, activityCache, logger, cfg.Activity.PollInterval(), cfg.Activity.FeedLimit)
	go poller.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	checks := map[string]handlers.DependencyCheck{
		"redis":        redis.Ping,
		"record_store": store.HealthCheck,
	}
	if pg.Enabled() {
		checks["postgres"] = pg.Ping
	}
	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           handlers.NewAuthHandler(authService),
		Intake:         handlers.NewIntakeHandler(intakeService),
		Complaints:     handlers.NewComplaintsHandler(complaintService),
		Customers:      handlers.NewCustomersHandler(customerService),
		Users:          handlers.NewUsersHandler(userService),
		Policy:         handlers.NewPolicyHandler(policyService, engine),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userService),
		Permissions:    engine,
		Metrics:        metrics.Handler(),
		IntakeLimiter:  httptransport.RateLimit(cfg.Intake.RatePerSecond, cfg.Intake.Burst),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

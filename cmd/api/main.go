package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/demand-service/internal/api/http"
	"github.com/spec-kit/demand-service/internal/api/http/handlers"
	"github.com/spec-kit/demand-service/internal/auth"
	"github.com/spec-kit/demand-service/internal/config"
	"github.com/spec-kit/demand-service/internal/events"
	"github.com/spec-kit/demand-service/internal/observability"
	"github.com/spec-kit/demand-service/internal/persistence"
	"github.com/spec-kit/demand-service/internal/queue"
	"github.com/spec-kit/demand-service/internal/repository"
	"github.com/spec-kit/demand-service/internal/service"
	"github.com/spec-kit/demand-service/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, cfg.App.Name+"-api")
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer shutdownTracing(context.Background()) //nolint:errcheck

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	broker, err := persistence.NewNATS(ctx, cfg.NATS, cfg.App.Name+"-api", logger)
	if err != nil {
		logger.Fatal("failed to connect nats", zap.Error(err))
	}
	defer broker.Close()

	publisher, err := queue.NewPublisher(ctx, broker.Conn, cfg.NATS, logger)
	if err != nil {
		logger.Fatal("failed to init assignment queue", zap.Error(err))
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(dispatcher, logger, cfg.Notification)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	if cfg.Cache.Enabled {
		activityRepo = repository.NewCachedActivityRepository(activityRepo, redis.Client, cfg.Cache.TTL, logger)
		ticketRepo = repository.NewCachedTicketRepository(ticketRepo, redis.Client, cfg.Cache.TTL, logger)
	}

	authService := service.NewAuthService(cfg.Auth, userRepo)
	userService := service.NewUserService(userRepo, logger)
	activityService := service.NewActivityService(service.ActivityDependencies{
		ActivityRepo: activityRepo,
		UserRepo:     userRepo,
		Logger:       logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		ActivityRepo: activityRepo,
		UserRepo:     userRepo,
		Queue:        publisher,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	validate := handlers.NewValidator()
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis},
			handlers.Dependency{Name: "nats", Pinger: broker},
		),
		Users:          handlers.NewUsersHandler(userService, authService, validate),
		Activities:     handlers.NewActivitiesHandler(activityService, validate),
		Tickets:        handlers.NewTicketsHandler(ticketService, validate),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

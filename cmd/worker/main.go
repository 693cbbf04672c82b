package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, cfg.App.Name+"-worker")
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer shutdownTracing(context.Background()) //nolint:errcheck

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	broker, err := persistence.NewNATS(ctx, cfg.NATS, cfg.App.Name+"-worker", logger)
	if err != nil {
		logger.Fatal("failed to connect nats", zap.Error(err))
	}
	defer broker.Close()

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	consumer, err := queue.NewConsumer(ctx, broker.Conn, cfg.NATS, metrics, logger)
	if err != nil {
		logger.Fatal("failed to bind assignment consumer", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(dispatcher, logger, cfg.Notification)

	pool := pg.PoolHandle()
	activityRepo := repository.NewActivityRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	if cfg.Cache.Enabled {
		activityRepo = repository.NewCachedActivityRepository(activityRepo, redis.Client, cfg.Cache.TTL, logger)
		ticketRepo = repository.NewCachedTicketRepository(ticketRepo, redis.Client, cfg.Cache.TTL, logger)
	}

	assignments := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:   ticketRepo,
		ActivityRepo: activityRepo,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})

	probe := fiber.New(fiber.Config{DisableStartupMessage: true})
	probe.Get("/health/live", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "alive"}) })
	probe.Get("/metrics", metrics.Handler())
	go func() {
		if err := probe.Listen(cfg.App.WorkerAddr()); err != nil {
			logger.Error("worker probe listen", zap.Error(err))
		}
	}()
	defer probe.Shutdown() //nolint:errcheck

	if err := worker.NewAssignmentWorker(consumer, assignments, logger).Run(ctx); err != nil {
		logger.Error("assignment worker stopped with error", zap.Error(err))
	}
	logger.Info("shutting down")
}

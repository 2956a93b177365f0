// Package main is the entry point for the BloodLink alert engine.
// It initializes all components and starts the HTTP server, the feed
// consumer and the expiry sweeper.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bloodlink/internal/api"
	"bloodlink/internal/config"
	"bloodlink/internal/expiry"
	"bloodlink/internal/lifecycle"
	"bloodlink/internal/notify"
	"bloodlink/internal/queue"
	kafkaqueue "bloodlink/internal/queue/kafka"
	memoryqueue "bloodlink/internal/queue/memory"
	"bloodlink/internal/store"
	memorystor "bloodlink/internal/store/memory"
	postgresstor "bloodlink/internal/store/postgres"
	redisstor "bloodlink/internal/store/redis"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	// Bootstrap logger until config is loaded
	logger := initLogger(&config.LoggerConfig{Level: "info", Format: "json"})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}
	logger = initLogger(&cfg.Logger)

	logger.Info("configuration loaded",
		"path", *configPath,
		"storage_mode", cfg.Storage.Mode,
	)

	deps, cleanup, err := initDependencies(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Create context that listens for shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start feed consumer in background
	go func() {
		if err := deps.feed.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("feed consumer error", "error", err)
			cancel()
		}
	}()

	// Start expiry sweeper in background
	go deps.sweeper.Run(ctx)

	// Start HTTP server
	go func() {
		if err := deps.server.Start(); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	logger.Info("BloodLink started",
		"address", cfg.Server.Address(),
		"storage_mode", cfg.Storage.Mode,
	)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := deps.feed.Close(); err != nil {
		logger.Error("feed consumer shutdown error", "error", err)
	}

	logger.Info("BloodLink stopped")
}

// dependencies holds all initialized service dependencies.
type dependencies struct {
	server  *api.Server
	feed    *lifecycle.FeedConsumer
	sweeper *expiry.Sweeper
}

// initDependencies creates and wires all service dependencies based on config.
// Returns the dependencies and a cleanup function.
func initDependencies(cfg *config.Config, logger *slog.Logger) (*dependencies, func(), error) {
	var (
		alertRepo        store.AlertRepository
		actorRepo        store.ActorRepository
		notificationRepo store.NotificationRepository
		locker           store.AlertLocker
		producer         queue.Producer
		consumer         queue.Consumer
		cleanupFuncs     []func()
	)

	if cfg.Storage.UseMemory() {
		logger.Info("initializing in-memory storage")

		alertRepo = memorystor.NewAlertRepository()
		actorRepo = memorystor.NewActorRepository()
		notificationRepo = memorystor.NewNotificationRepository()
		locker = memorystor.NewAlertLocker()

		memQueue := memoryqueue.NewQueue(10000)
		producer = memQueue
		consumer = memQueue
		cleanupFuncs = append(cleanupFuncs, func() { _ = memQueue.Close() })
	} else {
		logger.Info("initializing production storage (Kafka, Redis, PostgreSQL)")

		ctx := context.Background()
		db, err := postgresstor.NewDB(ctx, &cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		cleanupFuncs = append(cleanupFuncs, db.Close)

		if err := db.RunMigrations(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("database migrations completed")

		alertRepo = postgresstor.NewAlertRepository(db)
		actorRepo = postgresstor.NewActorRepository(db)
		notificationRepo = postgresstor.NewNotificationRepository(db)

		redisLocker, err := redisstor.NewAlertLocker(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		locker = redisLocker
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisLocker.Close() })

		kafkaProducer := kafkaqueue.NewProducer(&cfg.Kafka)
		producer = kafkaProducer
		cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaProducer.Close() })

		kafkaConsumer := kafkaqueue.NewConsumer(&cfg.Kafka)
		consumer = kafkaConsumer
		cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaConsumer.Close() })
	}

	// Notification transport is a logging stub until a push provider is wired
	transport := notify.NewLogTransport(logger)
	dispatcher := notify.NewDispatcher(transport, notificationRepo, logger)

	service := lifecycle.NewService(
		alertRepo,
		actorRepo,
		notificationRepo,
		locker,
		dispatcher,
		producer,
		lifecycle.Options{
			TTL:               cfg.Alerts.TTL,
			PropagationFanout: cfg.Alerts.PropagationFanout,
		},
		logger,
	)

	feed := lifecycle.NewFeedConsumer(consumer, logger)
	sweeper := expiry.NewSweeper(service, cfg.Alerts.SweepInterval, logger)

	alertHandler := api.NewAlertHandler(service, logger)
	notificationHandler := api.NewNotificationHandler(notificationRepo, logger)
	actorHandler := api.NewActorHandler(actorRepo, logger)

	server := api.NewServer(api.ServerDeps{
		Config:              &cfg.Server,
		Logger:              logger,
		AlertHandler:        alertHandler,
		NotificationHandler: notificationHandler,
		ActorHandler:        actorHandler,
	})

	cleanup := func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}

	return &dependencies{
		server:  server,
		feed:    feed,
		sweeper: sweeper,
	}, cleanup, nil
}

// initLogger creates and configures the application logger.
func initLogger(cfg *config.LoggerConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

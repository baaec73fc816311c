package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"mls_syncer/internal/api"
	"mls_syncer/internal/config"
	"mls_syncer/internal/media"
	"mls_syncer/internal/mls"
	"mls_syncer/internal/publisher"
	"mls_syncer/internal/scheduler"
	"mls_syncer/internal/service"
	"mls_syncer/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize RabbitMQ publisher
	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	// Initialize stores
	listingStore := postgres.NewListingStore(db)
	mediaStore := postgres.NewMediaStore(db)
	ledgerStore := postgres.NewLedgerStore(db)
	txManager := postgres.NewTransactionManager(db)

	blobStore, err := media.NewStore(cfg.Media.Dir, cfg.Media.DownloadTimeout, cfg.Media.MaxAttempts, logger)
	if err != nil {
		logger.Error("failed to init media store", "error", err)
		os.Exit(1)
	}

	// One feed client and sync service per configured source; stores and
	// the publisher are shared.
	sched := scheduler.New(logger)
	apiSources := make(map[string]api.Source, len(cfg.Sources))

	for _, src := range cfg.Sources {
		feed, err := mls.NewClient(src, logger)
		if err != nil {
			logger.Error("failed to build feed client", "source", src.ID, "error", err)
			os.Exit(1)
		}

		pipeline := service.NewMediaPipeline(blobStore, mediaStore, logger)
		engine := service.NewReconcileEngine(
			src.ID,
			listingStore,
			pipeline,
			feed,
			txManager,
			rabbitMQ,
			logger,
		)
		syncService := service.NewSyncService(src, feed, engine, listingStore, ledgerStore, logger)

		cadence, err := src.ParsedCadence()
		if err != nil {
			logger.Error("invalid cadence", "source", src.ID, "error", err)
			os.Exit(1)
		}

		sched.Register(src.ID, syncService, cadence)
		apiSources[src.ID] = api.Source{
			WebhookToken: src.WebhookToken,
			Status:       syncService,
		}
	}

	handler := api.NewHandler(sched, apiSources, cfg.Server.AdminKey, logger)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins, logger)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // manual trigger blocks for the whole run
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("starting listing syncer", "sources", len(cfg.Sources))

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/fioreale/PaperFlow/internal/api/handler"
	"github.com/fioreale/PaperFlow/internal/api/router"
	"github.com/fioreale/PaperFlow/internal/config"
	"github.com/fioreale/PaperFlow/internal/dropbox"
	"github.com/fioreale/PaperFlow/internal/extractor"
	"github.com/fioreale/PaperFlow/internal/jobs"
	"github.com/fioreale/PaperFlow/internal/notify"
	"github.com/fioreale/PaperFlow/internal/pipeline"
	"github.com/fioreale/PaperFlow/internal/renderer"
	"github.com/fioreale/PaperFlow/shared/logger"
	"github.com/fioreale/PaperFlow/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("PAPERFLOW_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
	})

	appLogger.Info("Starting PaperFlow",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Job store
	store := jobs.NewStore(appLogger)

	// Collaborator services
	extractorSvc := extractor.NewService(extractor.Config{
		Timeout:   cfg.Extractor.Timeout,
		UserAgent: cfg.Extractor.UserAgent,
	}, appLogger)

	rendererSvc, err := renderer.NewService(renderer.Config{
		OutputDir:        cfg.Renderer.OutputDir,
		PageSize:         cfg.Renderer.PageSize,
		Margin:           cfg.Renderer.Margin,
		MaxArticleLength: cfg.Renderer.MaxArticleLength,
		Timeout:          cfg.Renderer.Timeout,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}

	dropboxClient := dropbox.NewClient(dropbox.Config{
		AppKey:       os.Getenv("DROPBOX_APP_KEY"),
		AppSecret:    os.Getenv("DROPBOX_APP_SECRET"),
		RefreshToken: os.Getenv("DROPBOX_REFRESH_TOKEN"),
		FolderPath:   cfg.Dropbox.FolderPath,
		Timeout:      cfg.Dropbox.Timeout,
	}, appLogger)
	if dropboxClient.IsConfigured() {
		appLogger.Info("Dropbox upload enabled",
			slog.String("folder", cfg.Dropbox.FolderPath),
		)
	} else {
		appLogger.Warn("Dropbox credentials not configured, uploads disabled")
	}

	// Optional event publisher
	var notifier pipeline.Notifier
	var rabbitClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = rabbitmq.NewClient(&rabbitmq.Config{
			Host:              cfg.RabbitMQ.Host,
			Port:              cfg.RabbitMQ.Port,
			User:              cfg.RabbitMQ.User,
			Password:          cfg.RabbitMQ.Password,
			VHost:             cfg.RabbitMQ.VHost,
			ExchangeName:      cfg.RabbitMQ.Exchange.Name,
			ExchangeType:      cfg.RabbitMQ.Exchange.Type,
			ExchangeDurable:   cfg.RabbitMQ.Exchange.Durable,
			RoutingKey:        cfg.RabbitMQ.RoutingKey,
			RetryAttempts:     cfg.RabbitMQ.Connection.RetryAttempts,
			RetryInterval:     cfg.RabbitMQ.Connection.RetryInterval,
			Heartbeat:         cfg.RabbitMQ.Connection.Heartbeat,
			PublishRetries:    cfg.RabbitMQ.Publish.RetryAttempts,
			PublishRetryDelay: cfg.RabbitMQ.Publish.RetryInterval,
		}, appLogger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		notifier = notify.NewRabbitNotifier(rabbitClient, appLogger)
		appLogger.Info("Job event publishing enabled",
			slog.String("exchange", cfg.RabbitMQ.Exchange.Name),
		)
	}

	// Pipeline runner
	runner := pipeline.NewRunner(store, extractorSvc, rendererSvc, dropboxClient, notifier, cfg.Pipeline.MaxConcurrent, appLogger)

	// Eviction scheduler: the store has no timer of its own.
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	go runEvictionLoop(cleanupCtx, store, cfg.Jobs, appLogger)

	// Router and HTTP server
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	deps := &handler.Dependencies{
		Logger: appLogger,
		Store:  store,
		Runner: runner,
	}
	r := router.SetupRouter(deps, os.Getenv("PAPERFLOW_API_KEY"))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("PaperFlow is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer func() {
		cancel()
		cancelCleanup()
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// runEvictionLoop periodically drops jobs past the retention window.
func runEvictionLoop(ctx context.Context, store *jobs.Store, cfg config.JobsConfig, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	logger.Info("Job eviction scheduler started",
		slog.Duration("interval", cfg.CleanupInterval),
		slog.Duration("max_age", cfg.MaxAge),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Job eviction scheduler stopped")
			return
		case <-ticker.C:
			store.EvictOlderThan(cfg.MaxAge)
		}
	}
}

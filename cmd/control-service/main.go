package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/mission-control/internal/config"
	"github.com/cuongbtq/mission-control/internal/control/backend"
	"github.com/cuongbtq/mission-control/internal/control/controller"
	"github.com/cuongbtq/mission-control/internal/control/events"
	"github.com/cuongbtq/mission-control/internal/control/handler"
	"github.com/cuongbtq/mission-control/internal/control/publisher"
	"github.com/cuongbtq/mission-control/internal/control/router"
	"github.com/cuongbtq/mission-control/internal/control/storage"
	"github.com/cuongbtq/mission-control/shared/logger"
	"github.com/cuongbtq/mission-control/shared/postgresql"
	"github.com/cuongbtq/mission-control/shared/rabbitmq"
)

const serviceName = "control-service"

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

	defaultConfigPath := os.Getenv("CONTROL_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/control-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateControlConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting control service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("backend", cfg.Backend.BaseURL),
	)

	client, err := backend.NewClient(backend.Config{
		BaseURL:        cfg.Backend.BaseURL,
		UploadPath:     cfg.Backend.UploadPath,
		StatusPath:     cfg.Backend.StatusPath,
		RequestTimeout: cfg.Backend.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize backend client: %w", err)
	}

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o750); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	hub := events.NewHub(0, appLogger.Logger)
	subscribers := []controller.Subscriber{hub}

	var archive handler.MissionArchive
	var health handler.HealthChecker
	var dbClient *postgresql.Client
	if cfg.Database.Enabled {
		dbClient, err = initPostgreSQL(&cfg.Database, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer dbClient.Close()

		archive = storage.NewStorage(dbClient)
		health = dbClient
		appLogger.Info("Database connection established")
	}

	var pub *publisher.Publisher
	var rabbitClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()

		pub = publisher.New(rabbitClient, appLogger.Logger, cfg.RabbitMQ.Publish.Timeout, 0)
		subscribers = append(subscribers, pub)
		appLogger.Info("RabbitMQ connection established")
	}

	ctrlLogger := appLogger.With(slog.String("component", "controller"))
	ctrl := controller.New(client, controller.Fanout(subscribers...), ctrlLogger.Logger,
		controller.WithPollInterval(cfg.Backend.PollInterval),
		controller.WithPollDeadline(cfg.Backend.PollDeadline),
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.SetupRouter(&handler.Dependencies{
		Logger:         appLogger.With(slog.String("component", "http")).Logger,
		ServiceName:    serviceName,
		Controller:     ctrl,
		Hub:            hub,
		Archive:        archive,
		Health:         health,
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, cfg.Server.CORSAllowOrigin)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("Starting HTTP server",
			slog.String("address", addr),
			slog.String("max_upload", humanize.IBytes(uint64(cfg.Server.MaxUploadBytes))),
			slog.Duration("poll_interval", cfg.Backend.PollInterval),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if pub != nil {
		g.Go(func() error {
			return pub.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down control service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Close event streams first so Shutdown is not held open by SSE clients.
		hub.Close()
		err := srv.Shutdown(shutdownCtx)
		ctrl.Teardown()
		return err
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Control service stopped with error", slog.Any("error", err))
		return err
	}

	appLogger.Info("Control service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice/config"
	"backoffice/internal/api"
	"backoffice/internal/auth"
	"backoffice/internal/broker"
	"backoffice/internal/notify"
	"backoffice/internal/redisclient"
	"backoffice/internal/service"
	"backoffice/internal/store"
	"backoffice/internal/upload"
	"backoffice/internal/util"
	"backoffice/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "backoffice"

func serve(cfg *config.Config) error {
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting back office API", zap.String("env", cfg.Server.Env))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(serviceName, cfg.Observ.JaegerEndpoint, cfg.Observ.TraceSampleRatio)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	ctx := context.Background()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	denylist, closeDenylist, err := openDenylist(cfg)
	if err != nil {
		return err
	}
	defer closeDenylist()

	notifier, closeNotifier := openNotifier(cfg)
	defer closeNotifier()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, denylist)

	authService := service.NewAuthService(db, tokens, notifier, cfg.Auth.ConfirmationTTL)
	catalogService := service.NewCatalogService(db)
	orderService := service.NewOrderService(db)

	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	uploads, err := upload.NewLocalStorage(cfg.Server.UploadDir)
	if err != nil {
		return err
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if !cfg.Auth.EnforceAdminAuth {
		logger.Warn("Admin routes are not protected, set AUTH_ENFORCE_ADMIN=true")
	}

	router := gin.New()
	handler := api.NewHandler(authService, catalogService, orderService, uploads, db, api.Options{
		EnforceAdminAuth: cfg.Auth.EnforceAdminAuth,
		CORSOrigins:      cfg.Server.CORSOrigins,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}

// openStore picks the store by driver. The memory store always starts with
// the demo catalog so the API is usable without a database.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	logger := util.GetLogger()

	var db store.Store
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg, err := store.NewPostgresStore(cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, err
			}
			logger.Info("Schema applied")
		}
		db = pg
		logger.Info("Database connected")
	case config.DriverMemory:
		db = store.NewMemoryStore()
		logger.Warn("Using in-memory store, data is lost on restart")
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Database.Driver)
	}

	if cfg.Database.SeedDemo || cfg.Database.Driver == config.DriverMemory {
		data, err := store.LoadDemoData()
		if err == nil {
			err = store.Seed(ctx, db, data)
		}
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
		logger.Info("Demo data seeded", zap.Int("products", len(data.Products)))
	}

	return db, nil
}

func openDenylist(cfg *config.Config) (auth.Denylist, func(), error) {
	if cfg.Redis.Addr == "" {
		return auth.NewMemoryDenylist(), func() {}, nil
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	util.GetLogger().Info("Redis connected")
	return redisClient, func() { redisClient.Close() }, nil
}

func openNotifier(cfg *config.Config) (notify.Notifier, func()) {
	if cfg.Notify.Driver != config.NotifierKafka {
		return notify.NewLogNotifier(), func() {}
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications)
	util.GetLogger().Info("Kafka producer initialized",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.TopicNotifications))

	publisher := broker.NewEventPublisher(producer)
	return notify.NewKafkaNotifier(publisher, cfg.Notify.MailFrom), func() { producer.Close() }
}

func mailRelay(cfg *config.Config) error {
	defer util.SyncLogger()

	logger := util.GetLogger()

	var mailer notify.Mailer = notify.NewLogMailer()
	if cfg.Notify.SMTP.Host != "" {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.Notify.SMTP.Host,
			Port:     cfg.Notify.SMTP.Port,
			Username: cfg.Notify.SMTP.Username,
			Password: cfg.Notify.SMTP.Password,
		})
	} else {
		logger.Warn("SMTP_HOST not set, mails are only logged")
	}

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications, cfg.Kafka.ConsumerGroup)
	mailWorker := worker.NewMailWorker(consumer, mailer)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := mailWorker.Start(ctx)
	if stopErr := mailWorker.Stop(); stopErr != nil {
		logger.Warn("Error closing consumer", zap.Error(stopErr))
	}
	if err != nil && ctx.Err() == nil {
		return err
	}

	logger.Info("Mail relay exited")
	return nil
}

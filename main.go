package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/packlane/packlane-backend/config"
	"github.com/packlane/packlane-backend/db"
	"github.com/packlane/packlane-backend/handlers"
	"github.com/packlane/packlane-backend/internal/jobqueue"
	"github.com/packlane/packlane-backend/internal/notify"
	"github.com/packlane/packlane-backend/internal/scheduler"
	"github.com/packlane/packlane-backend/internal/store/postgres"
	"github.com/packlane/packlane-backend/logger"
	"github.com/packlane/packlane-backend/router"
	"github.com/packlane/packlane-backend/services"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	dbURL := cfg.Database.URL()
	if err := db.RunMigrations(dbURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatalf("Failed to parse database config: %v", err)
	}
	if cfg.IsProduction() {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Database.Host,
			MinVersion: tls.VersionTLS12,
		}
	}
	if cfg.Database.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	log.Infow("Database connected", "url", logger.MaskConnectionString(dbURL))

	// Redis
	redisOptions := &redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}
	if cfg.Redis.UseTLS {
		redisOptions.TLSConfig = &tls.Config{
			ServerName: strings.Split(cfg.Redis.Address, ":")[0],
			MinVersion: tls.VersionTLS12,
		}
	}
	redisClient := redis.NewClient(redisOptions)
	defer func() { _ = redisClient.Close() }()

	// Stores
	tripStore := postgres.NewTripStore(pool)
	checklistStore := postgres.NewChecklistStore(pool)
	reminderStore := postgres.NewReminderStore(pool)
	shareStore := postgres.NewShareStore(pool)
	pushTokenStore := postgres.NewPushTokenStore(pool)

	// Job queue and scheduler
	queue := jobqueue.NewQueue(redisClient, jobqueue.Options{
		PollInterval:    time.Duration(cfg.Scheduler.PollIntervalSeconds) * time.Second,
		DispatchTimeout: time.Duration(cfg.Scheduler.DispatchTimeoutSeconds) * time.Second,
	})

	pushSink := notify.NewExpoSink(pushTokenStore)
	schedulerSvc := scheduler.NewService(reminderStore, checklistStore, queue, pushSink, cfg.Scheduler)
	queue.RegisterHandler(func(ctx context.Context, payload jobqueue.Payload) error {
		return schedulerSvc.HandleFire(ctx, payload.ChecklistID)
	})
	queue.Start()

	// Services
	rateLimitService := services.NewRateLimitService(redisClient)
	emailService := services.NewEmailService(&cfg.Email)
	suggestionService, err := services.NewSuggestionService(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to initialize suggestion service: %v", err)
	}

	// HTTP surface
	engine := router.SetupRouter(router.Dependencies{
		Config:            cfg,
		TripHandler:       handlers.NewTripHandler(tripStore, schedulerSvc),
		ItemHandler:       handlers.NewItemHandler(checklistStore, tripStore),
		ReminderHandler:   handlers.NewReminderHandler(reminderStore, tripStore, schedulerSvc),
		SuggestionHandler: handlers.NewSuggestionHandler(tripStore, suggestionService),
		ShareHandler:      handlers.NewShareHandler(shareStore, tripStore, emailService, cfg.Server.FrontendURL),
		PushTokenHandler:  handlers.NewPushTokenHandler(pushTokenStore),
		HealthHandler:     handlers.NewHealthHandler(pool, redisClient, queue, cfg.Server.Version),
		RateLimiter:       rateLimitService,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownTimeout := time.Duration(cfg.Scheduler.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	if err := queue.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Job queue shutdown failed", "error", err)
	}

	log.Info("Server stopped")
}

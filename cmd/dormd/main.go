package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"dorm-billing-backend/config"
	"dorm-billing-backend/internal/api"
	"dorm-billing-backend/internal/db"
	"dorm-billing-backend/internal/notification"
	"dorm-billing-backend/internal/reminder"
	"dorm-billing-backend/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "dorm-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	opts := api.Options{
		CutoverDay:      cfg.Billing.CutoverDay,
		CurrencyPlaces:  cfg.Billing.CurrencyPlaces,
		GraceDays:       cfg.Billing.GraceDays,
		Location:        cfg.Billing.Location,
		CacheTTL:        cfg.Server.CacheTTL,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		JWTSecret:       cfg.Auth.JWTSecret,
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Println("auth.jwt_secret is empty; every caller is treated as an administrator")
	}

	if cfg.Push.Enabled() {
		webpushOptions := &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions,
			cfg.Billing.CurrencyPlaces, cfg.Billing.GraceDays)
		pool.Start(ctx)
		opts.Webpush = webpushOptions
		opts.Notifier = pool

		reminderSvc := reminder.NewService(cfg, appStore, pool)
		go reminderSvc.Run(ctx)
	} else {
		logger.Println("VAPID keys are not configured; push notifications are disabled")
	}

	// Initialize router
	router := api.NewRouter(appStore, opts)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

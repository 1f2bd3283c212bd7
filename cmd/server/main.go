// Package main implements the entry point for the tickler server, which
// evaluates recurring notifications once a day and fans each occurrence out
// as todos on the targeted users' lists.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ticklerhq/tickler/internal/api"
	"github.com/ticklerhq/tickler/internal/config"
	"github.com/ticklerhq/tickler/internal/platform/logger"
	"github.com/ticklerhq/tickler/internal/platform/postgres"
	"github.com/ticklerhq/tickler/internal/scheduler"
	"github.com/ticklerhq/tickler/internal/service"
	"github.com/ticklerhq/tickler/internal/service/occurrence"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("tickler server failed: %v", err)
	}
}

func run() error {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	appLogger.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("cron_spec", cfg.Scheduler.CronSpec),
		slog.String("timezone", cfg.Scheduler.Timezone))

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	db, err := openDatabase(cfg.Database.URL, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	migrationCtx, cancelMigrations := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelMigrations()
	if err := postgres.RunMigrations(migrationCtx, db); err != nil {
		return err
	}
	appLogger.Info("database migrations applied")

	notificationStore := postgres.NewPostgresNotificationStore(db, appLogger)
	userStore := postgres.NewPostgresUserStore(db, appLogger)
	todoStore := postgres.NewPostgresTodoStore(db, appLogger)
	stateStore := postgres.NewPostgresNotificationStateStore(db, appLogger)
	occurrenceStore := postgres.NewPostgresOccurrenceStore(db, appLogger)

	processor := occurrence.NewProcessor(occurrence.Config{
		Notifications: notificationStore,
		Users:         userStore,
		Todos:         todoStore,
		States:        stateStore,
		Ledger:        occurrenceStore,
		Location:      loc,
		Logger:        appLogger,
	})

	notificationService := service.NewNotificationService(notificationStore, runtimeRand, appLogger)
	notificationDeleter := postgres.NewNotificationDeleter(db, appLogger)

	sched := scheduler.New(processor, cfg.Scheduler.CronSpec, loc, appLogger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	router := setupRouter(processor, notificationService, notificationDeleter, appLogger)
	return serveHTTP(cfg.Server.Port, router, appLogger)
}

// openDatabase opens the connection pool and verifies connectivity.
func openDatabase(url string, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connection established")
	return db, nil
}

// setupRouter configures the application router with all routes and
// middleware.
func setupRouter(processor *occurrence.Processor, notifications *service.NotificationService, deleter api.NotificationDeleter, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	occurrenceHandler := api.NewOccurrenceHandler(processor, log)
	notificationHandler := api.NewNotificationHandler(notifications, deleter, log)

	r.Route("/api", func(r chi.Router) {
		r.Post("/admin/occurrences/process", occurrenceHandler.Process)
		r.Post("/admin/notifications", notificationHandler.Create)
		r.Delete("/admin/notifications/{id}", notificationHandler.Delete)
		r.Get("/notifications/{id}/next-delivery", occurrenceHandler.NextDelivery)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", "error", err)
		}
	})

	return r
}

// serveHTTP starts the HTTP server and blocks until a shutdown signal,
// then drains connections gracefully.
func serveHTTP(port int, handler http.Handler, log *slog.Logger) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-shutdownCh:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("server shutdown completed")
	return nil
}

// Seeded once at startup; notification creation draws random recurrence
// values from here.
var runtimeRand = rand.New(rand.NewSource(time.Now().UnixNano()))

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookhaven/bookorders/internal/config"
	"github.com/bookhaven/bookorders/internal/db"
	"github.com/bookhaven/bookorders/internal/events"
	"github.com/bookhaven/bookorders/internal/httpapi"
	"github.com/bookhaven/bookorders/internal/metrics"
	"github.com/bookhaven/bookorders/internal/repo"
	"github.com/bookhaven/bookorders/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load("books")

	// Initialize logger
	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	log.Info("Book catalog service starting")

	// Connect to database
	log.Info("Connecting to database...")
	database, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	log.Info("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize repository
	bookRepo := repo.NewBookRepository(database, log)

	// Connect to RabbitMQ
	log.Info("Connecting to RabbitMQ")
	publisher, err := events.NewPublisher(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("RabbitMQ unavailable, event publishing disabled", zap.Error(err))
		publisher = nil
	}
	if publisher != nil {
		defer publisher.Close()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	booksAPI := httpapi.NewBooksAPI(bookRepo, publisher, log)

	router := httpapi.NewRouter(cfg, log, m, promhttp.Handler(), healthCheck(database, publisher), booksAPI.Register)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped")
}

func healthCheck(database *db.DB, publisher *events.Publisher) httpapi.HealthCheck {
	return func() error {
		if err := database.Ping(); err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		if publisher != nil && !publisher.IsHealthy() {
			return fmt.Errorf("rabbitmq connection failed")
		}
		return nil
	}
}

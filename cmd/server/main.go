// Package main is the entry point for the wabridge HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/config"
	"github.com/avolkov/wabridge/internal/handler"
	"github.com/avolkov/wabridge/internal/middleware"
	"github.com/avolkov/wabridge/internal/provider"
	"github.com/avolkov/wabridge/internal/repository"
	"github.com/avolkov/wabridge/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	repo := repository.NewRepository(db)
	providerClient := provider.NewClient(&cfg.Provider, logger)
	svc := service.NewService(cfg, repo, providerClient, redisClient, logger)

	h := handler.NewHandler(svc, logger)
	router := setupRouter(h, cfg.Media.StorageDir)

	middlewareConfig := &middleware.Config{
		Logger:          logger,
		RateLimit:       cfg.Middleware.RateLimit,
		RateLimitBurst:  cfg.Middleware.RateLimitBurst,
		RateLimitWindow: time.Duration(cfg.Middleware.RateLimitWindow) * time.Second,
		RequestTimeout:  30 * time.Second,
	}
	if cfg.Middleware.UseRedisLimiter {
		middlewareConfig.RedisClient = redisClient
	}
	if cfg.Middleware.EnableCORS {
		middlewareConfig.CORS = &middleware.CORSConfig{
			AllowedOrigins:   cfg.Middleware.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           86400,
		}
	}

	finalHandler := middleware.Chain(middlewareConfig)(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      finalHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Both background loops start with the server: the sweep retries
	// staged webhook logs, the escalation loop watches credential
	// expiries.
	if err := svc.Sweep.Start(ctx); err != nil {
		logger.Error("Failed to start webhook sweep", zap.Error(err))
	}
	if err := svc.Escalation.Start(ctx); err != nil {
		logger.Error("Failed to start expiry notifier", zap.Error(err))
	}

	go func() {
		logger.Info("Starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if svc.Sweep.IsRunning() {
		if err := svc.Sweep.Stop(); err != nil {
			logger.Error("Failed to stop webhook sweep", zap.Error(err))
		}
	}
	if svc.Escalation.IsRunning() {
		if err := svc.Escalation.Stop(); err != nil {
			logger.Error("Failed to stop expiry notifier", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

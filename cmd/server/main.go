package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/api"
	"github.com/merchanthub/omsapi/internal/config"
	"github.com/merchanthub/omsapi/internal/events"
	"github.com/merchanthub/omsapi/internal/normalize"
	"github.com/merchanthub/omsapi/internal/platforms"
	"github.com/merchanthub/omsapi/internal/repository/postgres"
	"github.com/merchanthub/omsapi/internal/service"
	"github.com/merchanthub/omsapi/internal/syncer"
	"github.com/merchanthub/omsapi/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, log)
	registry := platforms.NewRegistry(cfg.Sync, log)
	normalizer := normalize.New(log)
	publisher := events.NewLogPublisher(log)

	// Redis-backed lock for multi-instance deployments; in-memory otherwise
	var locker syncer.Locker
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		locker = syncer.NewRedisLocker(redisClient, time.Duration(cfg.Sync.LockTTLSeconds)*time.Second)
		log.Info("Using Redis sync lock", zap.String("addr", cfg.Redis.Addr))
	} else {
		locker = syncer.NewMemoryLocker()
	}

	orchestrator := syncer.New(repos, registry, normalizer, locker, publisher, log)
	connectionService := service.NewConnectionService(repos, registry, orchestrator, log)
	orderService := service.NewOrderService(repos, publisher, log)

	router := api.NewRouter(cfg, repos, connectionService, orderService, log)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}

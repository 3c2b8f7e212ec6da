package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shardfall/journey-engine/internal/config"
	"github.com/shardfall/journey-engine/internal/handlers"
	"github.com/shardfall/journey-engine/internal/logger"
	"github.com/shardfall/journey-engine/internal/middleware"
	"github.com/shardfall/journey-engine/pkg/engine"
	"github.com/shardfall/journey-engine/pkg/storage"
	"github.com/shardfall/journey-engine/pkg/story"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Journey Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"redis_addr", cfg.RedisAddr)

	s := story.Load(cfg.StoryFile, log)

	store := storage.NewRedisStore(cfg.RedisAddr, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		logger.WithError(log, err).Error("Failed to connect to storage")
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	eng := engine.New(s, store, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, s, log)
	mux.Handle("/health", healthHandler)

	journeyHandler := handlers.NewJourneyHandler(log, eng)
	mux.Handle("/v1/journey/", journeyHandler)

	playerHandler := handlers.NewPlayerHandler(log, eng, cfg.HistoryLimit)
	mux.Handle("/v1/player/", playerHandler)

	handler := middleware.Logger(log, mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(log, err).Error("Server failed to start")
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}

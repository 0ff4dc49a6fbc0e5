package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pokebinder/backend/internal/api"
	"github.com/pokebinder/backend/internal/binder"
	"github.com/pokebinder/backend/internal/cache"
	"github.com/pokebinder/backend/internal/catalog"
	"github.com/pokebinder/backend/internal/config"
	"github.com/pokebinder/backend/internal/database"
	"github.com/pokebinder/backend/internal/search"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}

	resultCache, err := cache.Open(cfg.CacheDir, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open result cache")
	}
	defer resultCache.Close()

	catalogClient := catalog.NewClient(catalog.Config{
		BaseURL:   cfg.CatalogBaseURL,
		APIKey:    cfg.CatalogAPIKey,
		TeamID:    cfg.CatalogTeamID,
		Timeout:   cfg.CatalogTimeout,
		RateLimit: cfg.CatalogRateLimit,
	}, logger)

	searchService := search.NewService(catalogClient, resultCache, cfg.SearchCacheTTL, cfg.PageSize, logger)
	binderService := binder.NewService(db, logger)

	router := api.SetupRouter(cfg, searchService, binderService, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
	logger.Info("Server stopped")
}

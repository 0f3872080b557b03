package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/gifbox/internal/api"
	"github.com/dom/gifbox/internal/auth"
	"github.com/dom/gifbox/internal/config"
	"github.com/dom/gifbox/internal/dispatch"
	"github.com/dom/gifbox/internal/logging"
	"github.com/dom/gifbox/internal/provider"
	"github.com/dom/gifbox/internal/repository/postgres"
	"github.com/dom/gifbox/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Initialize database
	gormLevel := logger.Warn
	if cfg.IsDevelopment() {
		gormLevel = logger.Info
	}
	db, err := postgres.NewConnection(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	}, gormLevel)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	repos := postgres.NewRepositories(db)
	services := service.NewServices(repos, cfg)

	tokens, err := auth.NewAuthority(cfg.JWTSecret, cfg.TokenLifetime())
	if err != nil {
		log.Fatal("failed to create token authority", zap.Error(err))
	}

	giphy := provider.NewGiphy(provider.GiphyConfig{
		BaseURL:  cfg.GiphyBaseURL,
		APIKey:   cfg.GiphyAPIKey,
		Rating:   cfg.GiphyRating,
		PageSize: cfg.SearchPageSize,
		Timeout:  cfg.ProviderTimeout,
	}, log)
	search := provider.Throttle(giphy, cfg.ProviderRatePerSecond, cfg.ProviderBurst)

	dispatcher := dispatch.New(services.Accounts, services.Library, search, tokens, log)
	router := api.NewRouter(dispatcher, cfg, log)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info("server stopped")
}

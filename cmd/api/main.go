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

	"github.com/readlearn/backend/internal/api"
	"github.com/readlearn/backend/internal/api/handler"
	"github.com/readlearn/backend/internal/api/middleware"
	"github.com/readlearn/backend/internal/app"
	"github.com/readlearn/backend/internal/config"
	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/source"
	"github.com/readlearn/backend/internal/source/localdir"
)

func main() {
	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// CONFIG_PATH selects a config file in production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := logger.SetComponent(context.Background(), "api")

	a, err := app.New(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	// Key validation and embedding warmup run in the background so the server starts at once.
	go a.ValidateClassifier(ctx)
	go func() {
		state := a.Embeddings.Warmup(ctx)
		appLogger.WithField("state", string(state)).Info("Embedding model warmup finished")
	}()

	deps := api.Deps{
		Analyzer:  a.Analysis,
		Definer:   a.Definitions,
		KeyStatus: a.KeyStatus,
		Health: handler.HealthDeps{
			Ping:              a.Ping,
			CacheStats:        a.Analyses.Stats,
			Index:             a.Index,
			Embeddings:        a.Embeddings,
			Usage:             a.Usage,
			KeyStatus:         a.KeyStatus,
			SimilarityBackend: cfg.Similarity.Backend,
			CachingEnabled:    cfg.Analysis.EnableCaching,
			DefaultLanguage:   cfg.Analysis.DefaultLanguage,
		},
		Prewarm: a.Prewarm,
		Sources: map[string]source.Source{
			"localdir": localdir.NewAdapter(cfg.Prewarm.Directory),
		},
	}
	if a.Redis != nil {
		deps.RateLimits = middleware.NewRedisCounter(a.Redis)
	}

	router := api.SetupRouter(cfg, deps)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":        cfg.Server.Port,
			"mode":        cfg.Server.Mode,
			"caching":     cfg.Analysis.EnableCaching,
			"analytics":   cfg.Analytics.Enabled,
			"max_words":   cfg.Analysis.MaxWords,
			"similarity":  cfg.Similarity.Backend,
			"cors":        cfg.Server.CORS.AllowedOrigins,
			"rate_limit":  fmt.Sprintf("%d per %s", cfg.Server.RateLimit.MaxRequests, cfg.Server.RateLimit.Window()),
			"distributed": a.Redis != nil,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/readlearn/backend/internal/app"
	"github.com/readlearn/backend/internal/config"
	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/source/localdir"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "readlearn-prewarm",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	dir := flag.String("dir", "", "Directory holding manifest.jsonl and articles/ (defaults to prewarm.directory)")
	limit := flag.Int("limit", 0, "Maximum number of articles to analyze, 0 for all")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if *dir == "" {
		*dir = cfg.Prewarm.Directory
	}

	ctx, cancel := context.WithCancel(logger.SetComponent(context.Background(), "prewarm"))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		appLogger.Info("Received shutdown signal, stopping prewarm...")
		cancel()
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	if !a.ValidateClassifier(ctx) {
		appLogger.Warn("Classifier key is not valid; cache misses will fail")
	}
	a.Embeddings.Warmup(ctx)

	src := localdir.NewAdapter(*dir)
	appLogger.WithFields(logger.Fields{
		"source":  src.GetSourceID(),
		"limit":   *limit,
		"workers": cfg.Prewarm.Workers,
		"caching": cfg.Analysis.EnableCaching,
	}).Info("Starting prewarm")

	status, err := a.Prewarm.Run(ctx, src, *limit)
	if err != nil {
		appLogger.WithError(err).Error("Prewarm failed")
		return
	}

	appLogger.WithFields(logger.Fields{
		"job_id":          status.JobID,
		"total":           status.Total,
		"exact_hits":      status.ExactHits,
		"similarity_hits": status.SimilarityHits,
		"fresh":           status.Fresh,
		"skipped":         status.Skipped,
		"failed":          status.Failed,
	}).Info("Prewarm completed")
}

// Package app wires configuration into repositories and services for the binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/readlearn/backend/internal/config"
	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/repository"
	"github.com/readlearn/backend/internal/service"
	"github.com/readlearn/backend/internal/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// App holds every long-lived dependency.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client

	Analyses   *repository.AnalysisRepository
	Index      service.SimilarityIndex
	Embeddings *service.EmbeddingService
	Classifier service.Classifier
	KeyStatus  *service.ClassifierStatus
	Usage      *service.UsageAccountant

	Analysis    *service.AnalysisService
	Definitions *service.DefinitionService
	Prewarm     *service.PrewarmService

	closers []func() error
}

// New initializes the application: database → vector index → storage → services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	a.Analyses = repository.NewAnalysisRepository(db)
	articles := repository.NewArticleEmbeddingRepository(db)

	if err := a.initIndex(ctx, articles); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Redis.URL != "" {
		if err := a.initRedis(ctx); err != nil {
			// the rate limiter falls back to in-process counters
			logger.FromContext(ctx).WithError(err).Warn("Redis unavailable")
		}
	}

	a.Embeddings = service.NewEmbeddingService(
		service.NewRemoteModelLoader(&cfg.Embedding),
		cfg.Embedding.MaxInputChars,
	)

	classifier, err := service.NewClassifier(&cfg.Classifier)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Classifier = classifier
	a.KeyStatus = service.NewClassifierStatus(classifier, cfg.Classifier.APIKeyConfigured())

	a.Usage = service.NewUsageAccountant(repository.NewUsageRepository(db), cfg.Analytics.Enabled)

	a.Analysis = service.NewAnalysisService(
		a.Analyses,
		a.Index,
		a.Embeddings,
		classifier,
		a.Usage,
		service.NewResponseArchive(a.initStorage(ctx)),
		service.AnalysisConfig{
			MaxWords:              cfg.Analysis.MaxWords,
			EnableCaching:         cfg.Analysis.EnableCaching,
			SimilarityThreshold:   cfg.Similarity.Threshold,
			SimilarityLimit:       cfg.Similarity.Limit,
			PreviewChars:          cfg.Analysis.PreviewChars,
			MaxTokens:             cfg.Classifier.MaxTokens,
			InputPricePerMillion:  cfg.Classifier.InputPricePerMillion,
			OutputPricePerMillion: cfg.Classifier.OutputPricePerMillion,
		},
	)

	a.Definitions = service.NewDefinitionService(
		repository.NewVocabularyRepository(db),
		classifier,
		a.Usage,
		service.DefinitionConfig{
			EnableCaching:         cfg.Analysis.EnableCaching,
			MaxTokens:             cfg.Classifier.DefinitionMaxTokens,
			BatchMaxTokens:        cfg.Classifier.BatchMaxTokens,
			InputPricePerMillion:  cfg.Classifier.InputPricePerMillion,
			OutputPricePerMillion: cfg.Classifier.OutputPricePerMillion,
		},
	)

	a.Prewarm = service.NewPrewarmService(a.Analysis, service.PrewarmConfig{
		Workers:         cfg.Prewarm.Workers,
		BatchSize:       cfg.Prewarm.BatchSize,
		DefaultLanguage: cfg.Analysis.DefaultLanguage,
	})

	return a, nil
}

func (a *App) initIndex(ctx context.Context, articles *repository.ArticleEmbeddingRepository) error {
	cfg := a.Config
	if cfg.Similarity.Backend != "qdrant" {
		a.Index = service.NewDatabaseIndex(articles)
		return nil
	}

	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Qdrant repository: %w", err)
	}
	a.closers = append(a.closers, qdrantRepo.Close)

	if err := qdrantRepo.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure Qdrant collection: %w", err)
	}
	a.Index = service.NewQdrantIndex(qdrantRepo, articles)
	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	opts, err := redis.ParseURL(a.Config.Redis.URL)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}
	a.Redis = rdb
	a.closers = append(a.closers, rdb.Close)
	return nil
}

// initStorage returns nil when archiving is disabled or the bucket is unreachable.
func (a *App) initStorage(ctx context.Context) storage.ObjectStorage {
	cfg := a.Config.Storage
	if !cfg.Enabled {
		return nil
	}
	store, err := storage.NewStorage(&cfg)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Object storage disabled")
		return nil
	}
	if ensurer, ok := store.(interface{ EnsureBucket(context.Context) error }); ok {
		if err := ensurer.EnsureBucket(ctx); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Object storage disabled: bucket unavailable")
			return nil
		}
	}
	return store
}

// ValidateClassifier probes the key, or trusts it when startup validation is off.
func (a *App) ValidateClassifier(ctx context.Context) bool {
	if !a.Config.Classifier.ValidateOnStartup {
		a.KeyStatus.MarkValid()
		return a.KeyStatus.Valid()
	}
	return a.KeyStatus.Validate(ctx)
}

// Ping checks the database connection.
func (a *App) Ping(ctx context.Context) error {
	return repository.Ping(ctx, a.DB)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close: %v", err)
		}
	}
	a.closers = nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/readlearn/backend/internal/domain"
	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/source"
)

// ErrPrewarmRunning is returned when a prewarm job is started while another one runs.
var ErrPrewarmRunning = errors.New("prewarm job already running")

// Resolver resolves one analysis request.
type Resolver interface {
	Resolve(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error)
}

// PrewarmConfig holds configuration for the prewarm service
type PrewarmConfig struct {
	Workers         int
	BatchSize       int
	DefaultLanguage string
}

// PrewarmStats holds counters for one prewarm run. Counters are updated atomically by workers.
type PrewarmStats struct {
	JobID     string
	SourceID  string
	StartTime time.Time

	total          atomic.Int64
	exactHits      atomic.Int64
	similarityHits atomic.Int64
	fresh          atomic.Int64
	skipped        atomic.Int64
	failed         atomic.Int64
	endTime        atomic.Pointer[time.Time]
}

// PrewarmStatus is a point-in-time copy of PrewarmStats.
type PrewarmStatus struct {
	JobID          string     `json:"job_id"`
	Source         string     `json:"source"`
	Running        bool       `json:"running"`
	Total          int64      `json:"total"`
	ExactHits      int64      `json:"exact_hits"`
	SimilarityHits int64      `json:"similarity_hits"`
	Fresh          int64      `json:"fresh"`
	Skipped        int64      `json:"skipped"`
	Failed         int64      `json:"failed"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Snapshot copies the current counters.
func (s *PrewarmStats) Snapshot() PrewarmStatus {
	status := PrewarmStatus{
		JobID:          s.JobID,
		Source:         s.SourceID,
		Total:          s.total.Load(),
		ExactHits:      s.exactHits.Load(),
		SimilarityHits: s.similarityHits.Load(),
		Fresh:          s.fresh.Load(),
		Skipped:        s.skipped.Load(),
		Failed:         s.failed.Load(),
		StartedAt:      s.StartTime,
	}
	if end := s.endTime.Load(); end != nil {
		status.FinishedAt = end
	} else {
		status.Running = true
	}
	return status
}

func (s *PrewarmStats) record(outcome domain.Outcome, err error) {
	if err != nil {
		s.failed.Add(1)
		return
	}
	switch outcome {
	case domain.OutcomeExactHit:
		s.exactHits.Add(1)
	case domain.OutcomeSimilarityHit:
		s.similarityHits.Add(1)
	default:
		s.fresh.Add(1)
	}
}

// PrewarmService pushes articles from a source through the resolver so later requests hit the caches.
type PrewarmService struct {
	resolver        Resolver
	workers         int
	batchSize       int
	defaultLanguage string

	mu      sync.Mutex
	current *PrewarmStats
}

// NewPrewarmService creates a new prewarm service
func NewPrewarmService(resolver Resolver, cfg PrewarmConfig) *PrewarmService {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = domain.DefaultLanguage
	}
	return &PrewarmService{
		resolver:        resolver,
		workers:         cfg.Workers,
		batchSize:       cfg.BatchSize,
		defaultLanguage: cfg.DefaultLanguage,
	}
}

// Status returns the latest job's counters, or false if no job has run.
func (s *PrewarmService) Status() (PrewarmStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return PrewarmStatus{}, false
	}
	return s.current.Snapshot(), true
}

// Start launches Run in the background and returns the job ID.
func (s *PrewarmService) Start(ctx context.Context, src source.Source, limit int) (string, error) {
	stats, err := s.begin(src)
	if err != nil {
		return "", err
	}
	go s.run(context.WithoutCancel(ctx), src, limit, stats)
	return stats.JobID, nil
}

// Run processes up to limit articles from src and blocks until every worker is done.
func (s *PrewarmService) Run(ctx context.Context, src source.Source, limit int) (PrewarmStatus, error) {
	stats, err := s.begin(src)
	if err != nil {
		return PrewarmStatus{}, err
	}
	s.run(ctx, src, limit, stats)
	return stats.Snapshot(), nil
}

func (s *PrewarmService) begin(src source.Source) (*PrewarmStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.endTime.Load() == nil {
		return nil, ErrPrewarmRunning
	}
	s.current = &PrewarmStats{
		JobID:     uuid.New().String(),
		SourceID:  src.GetSourceID(),
		StartTime: time.Now(),
	}
	return s.current, nil
}

func (s *PrewarmService) run(ctx context.Context, src source.Source, limit int, stats *PrewarmStats) {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldJobID:  stats.JobID,
		logger.FieldSource: stats.SourceID,
	})
	log := logger.FromContext(ctx)
	log.WithFields(logger.Fields{"limit": limit, "workers": s.workers}).Info("Starting prewarm")

	articles := make(chan source.Article, s.workers*2)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, articles, stats)
		}()
	}

	cursor := ""
	fetched := 0
fetch:
	for ctx.Err() == nil {
		batchLimit := s.batchSize
		if limit > 0 {
			remaining := limit - fetched
			if remaining <= 0 {
				break
			}
			if batchLimit > remaining {
				batchLimit = remaining
			}
		}

		batch, next, err := src.FetchBatch(ctx, cursor, batchLimit)
		if err != nil {
			log.WithError(err).Error("Failed to fetch batch")
			break
		}
		if len(batch) == 0 {
			break
		}
		fetched += len(batch)
		stats.total.Add(int64(len(batch)))

		for _, article := range batch {
			select {
			case articles <- article:
			case <-ctx.Done():
				break fetch
			}
		}

		if next == "" {
			break
		}
		cursor = next
	}

	close(articles)
	wg.Wait()

	end := time.Now()
	stats.endTime.Store(&end)
	status := stats.Snapshot()
	logger.With(logger.Fields{
		logger.FieldCount: status.Total,
		"exact_hits":      status.ExactHits,
		"similarity_hits": status.SimilarityHits,
		"fresh":           status.Fresh,
		"skipped":         status.Skipped,
		"failed":          status.Failed,
	}).WithDuration(end.Sub(stats.StartTime)).Info(ctx, "Prewarm completed")
}

func (s *PrewarmService) worker(ctx context.Context, articles <-chan source.Article, stats *PrewarmStats) {
	for article := range articles {
		if ctx.Err() != nil {
			stats.skipped.Add(1)
			continue
		}
		if strings.TrimSpace(article.Text) == "" {
			stats.skipped.Add(1)
			continue
		}

		language := article.Language
		if language == "" {
			language = s.defaultLanguage
		}
		result, err := s.resolver.Resolve(ctx, AnalyzeRequest{
			Text:     article.Text,
			URL:      article.URL,
			Language: language,
			UseCache: true,
		})
		if err != nil {
			logger.FromContext(ctx).WithError(err).WithField("article_id", article.ID).Warn("Failed to prewarm article")
			stats.record("", err)
			continue
		}
		stats.record(result.Outcome, nil)
	}
}

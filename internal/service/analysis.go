package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/readlearn/backend/internal/domain"
	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/prompts"
	"gorm.io/gorm"
)

// CacheTypeVectorSimilarity marks results reused from a similar article.
const CacheTypeVectorSimilarity = "vector_similarity"

// AnalysisStore is the exact-match cache keyed by sample hash.
type AnalysisStore interface {
	GetByHash(ctx context.Context, hash string) (*domain.Analysis, error)
	RecordHit(ctx context.Context, hash string) error
	UpsertOnConflict(ctx context.Context, analysis *domain.Analysis) error
}

// AnalysisConfig holds the tunables of the resolution pipeline.
type AnalysisConfig struct {
	MaxWords              int
	EnableCaching         bool
	SimilarityThreshold   float64
	SimilarityLimit       int
	PreviewChars          int
	MaxTokens             int
	InputPricePerMillion  float64
	OutputPricePerMillion float64
}

// AnalyzeRequest is one level-assessment request.
type AnalyzeRequest struct {
	Text     string
	URL      string
	Language string
	UseCache bool
}

// AnalysisResult is returned to API callers. Hit metadata is set only on cached results.
type AnalysisResult struct {
	CEFRLevel          domain.CEFRLevel `json:"cefr_level"`
	Confidence         string           `json:"confidence"`
	VocabularyExamples []string         `json:"vocabulary_examples"`
	GrammarFeatures    []string         `json:"grammar_features"`
	Reasoning          string           `json:"reasoning"`
	Language           string           `json:"language,omitempty"`
	Cached             bool             `json:"cached"`
	HitCount           int              `json:"hit_count,omitempty"`
	CacheType          string           `json:"cache_type,omitempty"`
	SimilarURL         string           `json:"similar_url,omitempty"`
	SimilarityScore    float64          `json:"similarity_score,omitempty"`

	Outcome domain.Outcome `json:"-"`
	Sample  Sample         `json:"-"`
}

// AnalysisService resolves a text to a CEFR level through the exact cache, the
// similarity index and finally the remote classifier.
type AnalysisService struct {
	store      AnalysisStore
	index      SimilarityIndex
	embeddings *EmbeddingService
	classifier Classifier
	usage      *UsageAccountant
	archive    *ResponseArchive
	cfg        AnalysisConfig
}

// NewAnalysisService wires the pipeline. index, embeddings and archive may be nil, which
// disables the similarity tier or archiving.
// Parameters:
//   - store: exact-match cache.
//   - index: similarity index over article embeddings.
//   - embeddings: embedding service for samples.
//   - classifier: remote model client.
//   - usage: usage accountant; records only when analytics are enabled.
//   - archive: destination for unparseable answers.
//   - cfg: pipeline settings.
//
// Returns:
//   - *AnalysisService: ready-to-use resolver.
func NewAnalysisService(
	store AnalysisStore,
	index SimilarityIndex,
	embeddings *EmbeddingService,
	classifier Classifier,
	usage *UsageAccountant,
	archive *ResponseArchive,
	cfg AnalysisConfig,
) *AnalysisService {
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = DefaultMaxWords
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = SimilarityThreshold
	}
	if cfg.SimilarityLimit <= 0 {
		cfg.SimilarityLimit = 1
	}
	if cfg.PreviewChars <= 0 {
		cfg.PreviewChars = 500
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	return &AnalysisService{
		store:      store,
		index:      index,
		embeddings: embeddings,
		classifier: classifier,
		usage:      usage,
		archive:    archive,
		cfg:        cfg,
	}
}

// Resolve assesses req.Text. Only ErrClassifierTransport and ErrClassifierParse are
// returned; cache and embedding failures degrade to the next tier.
func (s *AnalysisService) Resolve(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error) {
	language := strings.ToLower(strings.TrimSpace(req.Language))
	if language == "" {
		language = domain.DefaultLanguage
	}
	if !domain.IsSupportedLanguage(language) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, req.Language)
	}

	start := time.Now()
	sample := SmartSample(req.Text, s.cfg.MaxWords)
	hash := HashText(sample.Text)

	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldLanguage: language,
		logger.FieldTextHash: hash[:12],
	})
	logger.With(logger.Fields{
		"original_words": sample.OriginalWords,
		"sampled_words":  sample.SampledWords,
		"sampled":        sample.Sampled,
	}).Debug(ctx, "Text sampled")

	lookup := req.UseCache && s.cfg.EnableCaching

	if lookup {
		if result := s.exactLookup(ctx, hash, language); result != nil {
			result.Sample = sample
			s.logOutcome(ctx, result.Outcome, start)
			return result, nil
		}
	}

	var embedding []float32
	if lookup && req.URL != "" {
		embedding = s.embed(ctx, sample.Text)
		if result := s.similarityLookup(ctx, embedding, language); result != nil {
			result.Sample = sample
			s.logOutcome(ctx, result.Outcome, start)
			return result, nil
		}
	}

	classification, completion, err := s.classify(ctx, sample, hash, language)
	if err != nil {
		return nil, err
	}

	if s.cfg.EnableCaching {
		s.writeThrough(ctx, req, sample, hash, language, classification, embedding)
	}

	s.usage.Record(ctx, UsageEvent{
		Action:   domain.ActionAnalyze,
		Language: language,
		Tokens:   completion.TotalTokens(),
		CostUSD:  s.cost(completion),
		Outcome:  domain.OutcomeRemote,
	})

	result := &AnalysisResult{
		CEFRLevel:          classification.CEFRLevel,
		Confidence:         classification.Confidence,
		VocabularyExamples: classification.VocabularyExamples,
		GrammarFeatures:    classification.GrammarFeatures,
		Reasoning:          classification.Reasoning,
		Language:           language,
		Cached:             false,
		Outcome:            domain.OutcomeRemote,
		Sample:             sample,
	}
	s.logOutcome(ctx, result.Outcome, start)
	return result, nil
}

func (s *AnalysisService) exactLookup(ctx context.Context, hash, language string) *AnalysisResult {
	cached, err := s.store.GetByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.FromContext(ctx).WithError(err).Warn("Exact cache lookup failed")
		}
		return nil
	}

	if err := s.store.RecordHit(ctx, hash); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to record cache hit")
	}

	s.usage.Record(ctx, UsageEvent{
		Action:   domain.ActionAnalyze,
		Language: cached.Language,
		CacheHit: true,
		Outcome:  domain.OutcomeExactHit,
	})

	if cached.Language != "" {
		language = cached.Language
	}
	return &AnalysisResult{
		CEFRLevel:          cached.CEFRLevel,
		Confidence:         cached.Confidence,
		VocabularyExamples: nonNil(cached.VocabularyExamples),
		GrammarFeatures:    nonNil(cached.GrammarFeatures),
		Reasoning:          cached.Reasoning,
		Language:           language,
		Cached:             true,
		HitCount:           cached.HitCount + 1,
		Outcome:            domain.OutcomeExactHit,
	}
}

func (s *AnalysisService) similarityLookup(ctx context.Context, embedding []float32, language string) *AnalysisResult {
	if s.index == nil || embedding == nil {
		return nil
	}

	matches := s.index.FindSimilar(ctx, embedding, s.cfg.SimilarityThreshold, s.cfg.SimilarityLimit)
	if len(matches) == 0 {
		logger.CtxDebug(ctx, "No similar article above %.2f", s.cfg.SimilarityThreshold)
		return nil
	}
	match := matches[0]

	if err := s.index.Touch(ctx, match.URL); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to record similarity hit")
	}

	s.usage.Record(ctx, UsageEvent{
		Action:   domain.ActionAnalyze,
		Language: language,
		CacheHit: true,
		Outcome:  domain.OutcomeSimilarityHit,
	})

	return &AnalysisResult{
		CEFRLevel:          match.CEFRLevel,
		Confidence:         domain.ConfidenceHigh,
		VocabularyExamples: []string{},
		GrammarFeatures:    []string{},
		Reasoning: fmt.Sprintf("Similar to previously analyzed article (%.1f%% match): %s",
			match.Similarity*100, match.URL),
		Language:        language,
		Cached:          true,
		CacheType:       CacheTypeVectorSimilarity,
		SimilarURL:      match.URL,
		SimilarityScore: match.Similarity,
		Outcome:         domain.OutcomeSimilarityHit,
	}
}

// classify calls the remote model. The call is detached from ctx cancellation and
// bounded only by the classifier timeout.
func (s *AnalysisService) classify(ctx context.Context, sample Sample, hash, language string) (*Classification, *Completion, error) {
	prompt := prompts.Analysis(domain.LanguageName(language), sample.Text)

	callStart := time.Now()
	completion, err := s.classifier.Complete(context.WithoutCancel(ctx), prompt, s.cfg.MaxTokens)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("Classifier call failed")
		s.usage.Record(ctx, UsageEvent{
			Action:   domain.ActionAnalyze,
			Language: language,
			Outcome:  domain.OutcomeTransportError,
		})
		if !errors.Is(err, ErrClassifierTransport) {
			err = fmt.Errorf("%w: %v", ErrClassifierTransport, err)
		}
		return nil, nil, err
	}

	logger.With(logger.Fields{
		logger.FieldTokens:  completion.TotalTokens(),
		logger.FieldCostUSD: s.cost(completion),
	}).WithDuration(time.Since(callStart)).Info(ctx, "Classifier answered")

	parsed := ParseClassification(completion.Text)
	if !parsed.OK() {
		logger.FromContext(ctx).WithError(parsed.Err).Error("Failed to parse classifier answer")
		s.usage.Record(ctx, UsageEvent{
			Action:   domain.ActionAnalyze,
			Language: language,
			Tokens:   completion.TotalTokens(),
			CostUSD:  s.cost(completion),
			Outcome:  domain.OutcomeParseError,
		})
		s.archive.SaveParseFailure(ctx, hash, completion.Text)
		return nil, nil, fmt.Errorf("%w: %v", ErrClassifierParse, parsed.Err)
	}
	if parsed.Strategy != StrategyStrict {
		logger.CtxDebug(ctx, "Classifier answer parsed with %s strategy", parsed.Strategy)
	}
	return parsed.Result, completion, nil
}

// writeThrough populates both caches. Failures are logged and never returned.
func (s *AnalysisService) writeThrough(
	ctx context.Context,
	req AnalyzeRequest,
	sample Sample,
	hash, language string,
	classification *Classification,
	embedding []float32,
) {
	var url *string
	if req.URL != "" {
		u := req.URL
		url = &u
	}

	entry := &domain.Analysis{
		TextHash:           hash,
		URL:                url,
		Language:           language,
		CEFRLevel:          classification.CEFRLevel,
		Confidence:         classification.Confidence,
		VocabularyExamples: classification.VocabularyExamples,
		GrammarFeatures:    classification.GrammarFeatures,
		Reasoning:          classification.Reasoning,
		WordCount:          sample.OriginalWords,
	}
	if err := s.store.UpsertOnConflict(ctx, entry); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to store analysis in exact cache")
	}

	// URL-less requests never enter the similarity index.
	if req.URL == "" || s.index == nil {
		return
	}
	if embedding == nil {
		embedding = s.embed(ctx, sample.Text)
	}
	if embedding == nil {
		return
	}

	article := &domain.ArticleEmbedding{
		URL:         req.URL,
		URLHash:     HashText(req.URL),
		Language:    language,
		TextPreview: truncateRunes(req.Text, s.cfg.PreviewChars),
		Embedding:   embedding,
		CEFRLevel:   classification.CEFRLevel,
		WordCount:   sample.OriginalWords,
	}
	if err := s.index.UpsertOnConflict(ctx, article); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to store article embedding")
	}
}

func (s *AnalysisService) embed(ctx context.Context, text string) []float32 {
	if s.embeddings == nil {
		return nil
	}
	return s.embeddings.Embed(ctx, text)
}

func (s *AnalysisService) cost(c *Completion) float64 {
	return Cost(c.InputTokens, c.OutputTokens, s.cfg.InputPricePerMillion, s.cfg.OutputPricePerMillion)
}

func (s *AnalysisService) logOutcome(ctx context.Context, outcome domain.Outcome, start time.Time) {
	logger.With(logger.Fields{logger.FieldOutcome: string(outcome)}).
		WithDuration(time.Since(start)).
		Info(ctx, "Analysis resolved")
}

func nonNil(a domain.StringArray) []string {
	if a == nil {
		return []string{}
	}
	return a
}

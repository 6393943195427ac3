package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/readlearn/backend/internal/domain"
	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/prompts"
)

// Definition sources.
const (
	SourceCache               = "cache"
	SourceFrequencyDictionary = "frequency_dictionary"
	SourceLearnedDictionary   = "learned_dictionary"
	SourceAI                  = "ai"
)

// dictionaryLanguage is the only language with local dictionaries.
const dictionaryLanguage = "fr"

// VocabularyStore is the vocabulary cache plus the local dictionaries.
type VocabularyStore interface {
	GetCached(ctx context.Context, word, language string) (*domain.VocabularyEntry, error)
	InsertCached(ctx context.Context, entry *domain.VocabularyEntry) error
	LookupFrequency(ctx context.Context, word string) (*domain.DictionaryWord, error)
	LookupLearned(ctx context.Context, word string) (*domain.LearnedWord, error)
	UpsertLearned(ctx context.Context, word *domain.LearnedWord) error
}

// DefinitionConfig holds the tunables of the definition lookups.
type DefinitionConfig struct {
	EnableCaching         bool
	MaxTokens             int
	BatchMaxTokens        int
	InputPricePerMillion  float64
	OutputPricePerMillion float64
}

// DefineRequest asks for one word. Context or ForceAI bypass the local dictionaries.
type DefineRequest struct {
	Word           string
	Context        string
	Language       string
	TargetLanguage string
	ForceAI        bool
}

// Definition is a word definition. CEFR and Example are null when unknown.
type Definition struct {
	Word        string   `json:"word,omitempty"`
	Definition  string   `json:"definition"`
	Translation string   `json:"translation"`
	CEFR        *string  `json:"cefr"`
	Type        string   `json:"type"`
	Example     *string  `json:"example,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	Source      string   `json:"source,omitempty"`
	Cached      bool     `json:"cached"`
}

// BatchDefinitions is the answer to DefineBatch.
type BatchDefinitions struct {
	Results []Definition `json:"results"`
	Total   int          `json:"total"`
}

// modelDefinition is the JSON shape the model is asked to return.
type modelDefinition struct {
	Word        string `json:"word"`
	Definition  string `json:"definition"`
	Translation string `json:"translation"`
	CEFR        string `json:"cefr"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// DefinitionService looks words up in the cache, the local dictionaries and finally
// the remote model.
type DefinitionService struct {
	store      VocabularyStore
	classifier Classifier
	usage      *UsageAccountant
	cfg        DefinitionConfig
}

// NewDefinitionService creates a DefinitionService.
func NewDefinitionService(store VocabularyStore, classifier Classifier, usage *UsageAccountant, cfg DefinitionConfig) *DefinitionService {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 150
	}
	if cfg.BatchMaxTokens <= 0 {
		cfg.BatchMaxTokens = 800
	}
	return &DefinitionService{store: store, classifier: classifier, usage: usage, cfg: cfg}
}

// Define resolves one word.
func (s *DefinitionService) Define(ctx context.Context, req DefineRequest) (*Definition, error) {
	word := strings.TrimSpace(req.Word)
	language := normalizeLanguage(req.Language)
	if !domain.IsSupportedLanguage(language) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, req.Language)
	}
	ctx = logger.WithFields(ctx, logger.Fields{logger.FieldLanguage: language, "word": word})

	if s.cfg.EnableCaching {
		if def := s.cached(ctx, word, language); def != nil {
			s.usage.Record(ctx, UsageEvent{
				Action:   domain.ActionDefine,
				Language: language,
				CacheHit: true,
				Outcome:  domain.OutcomeCacheHit,
			})
			return def, nil
		}
	}

	var (
		def        *Definition
		completion *Completion
	)
	if req.Context == "" && !req.ForceAI {
		def = s.lookupDictionary(ctx, word, language)
	}

	if def == nil {
		var err error
		def, completion, err = s.defineRemote(ctx, word, req.Context, language)
		if err != nil {
			return nil, err
		}
		if language == dictionaryLanguage && def.Definition != "" && def.Translation != "" {
			s.learn(ctx, word, def)
		}
	}

	if s.cfg.EnableCaching {
		s.storeCached(ctx, word, language, def)
	}

	ev := UsageEvent{Action: domain.ActionDefine, Language: language, Outcome: domain.OutcomeDictionary}
	if completion != nil {
		ev.Tokens = completion.TotalTokens()
		ev.CostUSD = s.cost(completion)
		ev.Outcome = domain.OutcomeRemote
	}
	s.usage.Record(ctx, ev)

	return def, nil
}

// DefineBatch resolves several words with at most one remote call. Words the model
// answer does not cover are left out of the result.
func (s *DefinitionService) DefineBatch(ctx context.Context, words []string, language string) (*BatchDefinitions, error) {
	language = normalizeLanguage(language)
	if !domain.IsSupportedLanguage(language) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	ctx = logger.WithField(ctx, logger.FieldLanguage, language)

	results := make([]Definition, 0, len(words))
	var misses []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if s.cfg.EnableCaching {
			if def := s.cached(ctx, w, language); def != nil {
				def.Word = w
				def.Source = ""
				results = append(results, *def)
				continue
			}
		}
		misses = append(misses, w)
	}

	logger.With(logger.Fields{"hits": len(results), "misses": len(misses)}).
		Debug(ctx, "Batch definition cache pass")

	if len(misses) > 0 {
		results = append(results, s.defineBatchRemote(ctx, misses, language)...)
	}

	return &BatchDefinitions{Results: results, Total: len(results)}, nil
}

func (s *DefinitionService) defineBatchRemote(ctx context.Context, words []string, language string) []Definition {
	prompt := prompts.BatchDefinition(domain.LanguageName(language), words)
	completion, err := s.classifier.Complete(context.WithoutCancel(ctx), prompt, s.cfg.BatchMaxTokens)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("Batch definition call failed")
		s.usage.Record(ctx, UsageEvent{
			Action:   domain.ActionDefineBatch,
			Language: language,
			Outcome:  domain.OutcomeTransportError,
		})
		return nil
	}

	var items []modelDefinition
	if _, err := extractJSON(completion.Text, '[', ']', &items); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to parse batch definitions")
		s.usage.Record(ctx, UsageEvent{
			Action:   domain.ActionDefineBatch,
			Language: language,
			Tokens:   completion.TotalTokens(),
			CostUSD:  s.cost(completion),
			Outcome:  domain.OutcomeParseError,
		})
		return nil
	}

	out := make([]Definition, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Word) == "" {
			continue
		}
		def := item.toDefinition()
		def.Word = item.Word
		def.Source = ""
		if s.cfg.EnableCaching {
			s.storeCached(ctx, item.Word, language, def)
		}
		if language == dictionaryLanguage && def.Definition != "" && def.Translation != "" {
			s.learn(ctx, item.Word, def)
		}
		out = append(out, *def)
	}

	s.usage.Record(ctx, UsageEvent{
		Action:   domain.ActionDefineBatch,
		Language: language,
		Tokens:   completion.TotalTokens(),
		CostUSD:  s.cost(completion),
		Outcome:  domain.OutcomeRemote,
	})
	return out
}

func (s *DefinitionService) defineRemote(ctx context.Context, word, wordContext, language string) (*Definition, *Completion, error) {
	prompt := prompts.Definition(domain.LanguageName(language), word, wordContext)
	completion, err := s.classifier.Complete(context.WithoutCancel(ctx), prompt, s.cfg.MaxTokens)
	if err != nil {
		s.usage.Record(ctx, UsageEvent{
			Action:   domain.ActionDefine,
			Language: language,
			Outcome:  domain.OutcomeTransportError,
		})
		if !errors.Is(err, ErrClassifierTransport) {
			err = fmt.Errorf("%w: %v", ErrClassifierTransport, err)
		}
		return nil, nil, err
	}

	var item modelDefinition
	if _, err := extractJSON(completion.Text, '{', '}', &item); err != nil {
		s.usage.Record(ctx, UsageEvent{
			Action:   domain.ActionDefine,
			Language: language,
			Tokens:   completion.TotalTokens(),
			CostUSD:  s.cost(completion),
			Outcome:  domain.OutcomeParseError,
		})
		return nil, nil, fmt.Errorf("%w: %v", ErrClassifierParse, err)
	}

	logger.With(logger.Fields{logger.FieldTokens: completion.TotalTokens()}).Debug(ctx, "Definition from model")
	return item.toDefinition(), completion, nil
}

func (s *DefinitionService) cached(ctx context.Context, word, language string) *Definition {
	entry, err := s.store.GetCached(ctx, word, language)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Vocabulary cache lookup failed")
		return nil
	}
	if entry == nil {
		return nil
	}
	return &Definition{
		Definition:  entry.Definition,
		Translation: entry.Translation,
		CEFR:        optional(entry.CEFRLevel),
		Type:        entry.WordType,
		Examples:    entry.Examples,
		Source:      SourceCache,
		Cached:      true,
	}
}

func (s *DefinitionService) storeCached(ctx context.Context, word, language string, def *Definition) {
	entry := &domain.VocabularyEntry{
		Word:        word,
		Language:    language,
		Definition:  def.Definition,
		Translation: def.Translation,
		WordType:    def.Type,
	}
	if def.CEFR != nil {
		entry.CEFRLevel = *def.CEFR
	}
	if err := s.store.InsertCached(ctx, entry); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to store vocabulary cache entry")
	}
}

// lookupDictionary checks the frequency dictionary, then the learned one. Errors count
// as a miss.
func (s *DefinitionService) lookupDictionary(ctx context.Context, word, language string) *Definition {
	if language != dictionaryLanguage {
		return nil
	}

	freq, err := s.store.LookupFrequency(ctx, word)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Frequency dictionary lookup failed")
		return nil
	}
	if freq != nil {
		return &Definition{
			Definition:  firstNonEmpty(freq.DefinitionEN, freq.DefinitionFR, freq.Translation),
			Translation: freq.Translation,
			Type:        firstNonEmpty(freq.PartOfSpeech, "unknown"),
			Source:      SourceFrequencyDictionary,
		}
	}

	learned, err := s.store.LookupLearned(ctx, word)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Learned dictionary lookup failed")
		return nil
	}
	if learned != nil {
		return &Definition{
			Definition:  firstNonEmpty(learned.DefinitionEN, learned.Translation),
			Translation: learned.Translation,
			Type:        firstNonEmpty(learned.PartOfSpeech, "unknown"),
			Source:      SourceLearnedDictionary,
		}
	}
	return nil
}

func (s *DefinitionService) learn(ctx context.Context, word string, def *Definition) {
	err := s.store.UpsertLearned(ctx, &domain.LearnedWord{
		Word:         word,
		Translation:  def.Translation,
		PartOfSpeech: firstNonEmpty(def.Type, "unknown"),
		DefinitionEN: def.Definition,
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to add word to learned dictionary")
	}
}

func (s *DefinitionService) cost(c *Completion) float64 {
	return Cost(c.InputTokens, c.OutputTokens, s.cfg.InputPricePerMillion, s.cfg.OutputPricePerMillion)
}

func (m modelDefinition) toDefinition() *Definition {
	return &Definition{
		Definition:  m.Definition,
		Translation: m.Translation,
		CEFR:        optional(strings.ToUpper(strings.TrimSpace(m.CEFR))),
		Type:        m.Type,
		Example:     optional(m.Example),
		Source:      SourceAI,
	}
}

func normalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return domain.DefaultLanguage
	}
	return code
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

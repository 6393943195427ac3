package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/readlearn/backend/internal/domain"
)

type memoryVocabularyStore struct {
	cache    map[string]*domain.VocabularyEntry
	freq     map[string]*domain.DictionaryWord
	learned  map[string]*domain.LearnedWord
	cacheErr error
}

func newMemoryVocabularyStore() *memoryVocabularyStore {
	return &memoryVocabularyStore{
		cache:   make(map[string]*domain.VocabularyEntry),
		freq:    make(map[string]*domain.DictionaryWord),
		learned: make(map[string]*domain.LearnedWord),
	}
}

func (m *memoryVocabularyStore) GetCached(_ context.Context, word, language string) (*domain.VocabularyEntry, error) {
	if m.cacheErr != nil {
		return nil, m.cacheErr
	}
	return m.cache[strings.ToLower(word)+"|"+language], nil
}

func (m *memoryVocabularyStore) InsertCached(_ context.Context, e *domain.VocabularyEntry) error {
	key := strings.ToLower(e.Word) + "|" + e.Language
	if _, ok := m.cache[key]; !ok {
		cp := *e
		m.cache[key] = &cp
	}
	return nil
}

func (m *memoryVocabularyStore) LookupFrequency(_ context.Context, word string) (*domain.DictionaryWord, error) {
	return m.freq[strings.ToLower(word)], nil
}

func (m *memoryVocabularyStore) LookupLearned(_ context.Context, word string) (*domain.LearnedWord, error) {
	return m.learned[strings.ToLower(word)], nil
}

func (m *memoryVocabularyStore) UpsertLearned(_ context.Context, w *domain.LearnedWord) error {
	key := strings.ToLower(w.Word)
	if existing, ok := m.learned[key]; ok {
		existing.LearnCount++
		return nil
	}
	cp := *w
	cp.LearnCount = 1
	m.learned[key] = &cp
	return nil
}

const chatAnswer = `{"definition":"a small domesticated feline","translation":"cat","cefr":"a1","type":"noun"}`

func newDefinitionService(store VocabularyStore, c Classifier, usage UsageStore, caching bool) *DefinitionService {
	return NewDefinitionService(store, c, NewUsageAccountant(usage, true), DefinitionConfig{
		EnableCaching:         caching,
		MaxTokens:             150,
		BatchMaxTokens:        800,
		InputPricePerMillion:  0.80,
		OutputPricePerMillion: 4.00,
	})
}

func TestDefine_DictionaryFirst(t *testing.T) {
	store := newMemoryVocabularyStore()
	store.freq["maison"] = &domain.DictionaryWord{Word: "maison", Translation: "house", DefinitionFR: "bâtiment", PartOfSpeech: "noun"}
	store.learned["chouette"] = &domain.LearnedWord{Word: "chouette", Translation: "great"}
	classifier := &fakeClassifier{answer: chatAnswer}
	usage := &memoryUsageStore{}
	svc := newDefinitionService(store, classifier, usage, false)

	tests := []struct {
		word       string
		wantSource string
		wantDef    string
		wantType   string
	}{
		{"Maison", SourceFrequencyDictionary, "bâtiment", "noun"},
		{"chouette", SourceLearnedDictionary, "great", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			def, err := svc.Define(context.Background(), DefineRequest{Word: tt.word, Language: "fr"})
			if err != nil {
				t.Fatal(err)
			}
			if def.Source != tt.wantSource || def.Definition != tt.wantDef || def.Type != tt.wantType {
				t.Errorf("definition = %+v", def)
			}
			if def.CEFR != nil || def.Example != nil {
				t.Error("dictionary entries carry no level or example")
			}
		})
	}
	if classifier.calls != 0 {
		t.Errorf("classifier called %d times", classifier.calls)
	}
	if len(usage.rows) != 2 || usage.rows[0].Outcome != domain.OutcomeDictionary {
		t.Errorf("usage = %+v", usage.rows)
	}
}

func TestDefine_ContextBypassesDictionary(t *testing.T) {
	store := newMemoryVocabularyStore()
	store.freq["chat"] = &domain.DictionaryWord{Word: "chat", Translation: "cat"}
	classifier := &fakeClassifier{answer: chatAnswer, in: 50, out: 30}
	svc := newDefinitionService(store, classifier, &memoryUsageStore{}, false)

	def, err := svc.Define(context.Background(), DefineRequest{Word: "chat", Context: "Le chat dort.", Language: "fr"})
	if err != nil {
		t.Fatal(err)
	}
	if def.Source != SourceAI || def.CEFR == nil || *def.CEFR != "A1" {
		t.Errorf("definition = %+v", def)
	}
	if !strings.Contains(classifier.prompts[0], `in context: "Le chat dort."`) {
		t.Errorf("prompt = %q", classifier.prompts[0])
	}
	if store.learned["chat"] == nil || store.learned["chat"].LearnCount != 1 {
		t.Error("French model definitions should be learned")
	}

	svc.Define(context.Background(), DefineRequest{Word: "chat", Language: "fr", ForceAI: true})
	if store.learned["chat"].LearnCount != 2 {
		t.Errorf("learn_count = %d, want 2", store.learned["chat"].LearnCount)
	}
}

func TestDefine_NonFrenchGoesToModel(t *testing.T) {
	store := newMemoryVocabularyStore()
	classifier := &fakeClassifier{answer: chatAnswer}
	svc := newDefinitionService(store, classifier, &memoryUsageStore{}, false)

	if _, err := svc.Define(context.Background(), DefineRequest{Word: "Katze", Language: "de"}); err != nil {
		t.Fatal(err)
	}
	if classifier.calls != 1 || !strings.Contains(classifier.prompts[0], `Define German word "Katze"`) {
		t.Errorf("prompts = %v", classifier.prompts)
	}
	if len(store.learned) != 0 {
		t.Error("only French words are learned")
	}
}

func TestDefine_CacheRoundTrip(t *testing.T) {
	store := newMemoryVocabularyStore()
	classifier := &fakeClassifier{answer: chatAnswer}
	usage := &memoryUsageStore{}
	svc := newDefinitionService(store, classifier, usage, true)
	ctx := context.Background()

	first, err := svc.Define(ctx, DefineRequest{Word: "Chat", Language: "fr", ForceAI: true})
	if err != nil || first.Cached {
		t.Fatalf("first = %+v, err = %v", first, err)
	}
	second, err := svc.Define(ctx, DefineRequest{Word: "chat", Language: "fr", ForceAI: true})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.Source != SourceCache || second.Translation != "cat" {
		t.Errorf("second = %+v", second)
	}
	if classifier.calls != 1 {
		t.Errorf("classifier called %d times, want 1", classifier.calls)
	}
	if got := usage.outcomes(); len(got) != 2 || got[1] != domain.OutcomeCacheHit {
		t.Errorf("usage outcomes = %v", got)
	}
}

func TestDefine_CacheErrorFallsThrough(t *testing.T) {
	store := newMemoryVocabularyStore()
	store.cacheErr = errors.New("db down")
	svc := newDefinitionService(store, &fakeClassifier{answer: chatAnswer}, &memoryUsageStore{}, true)

	if _, err := svc.Define(context.Background(), DefineRequest{Word: "chat", Language: "fr"}); err != nil {
		t.Errorf("cache error surfaced: %v", err)
	}
}

func TestDefine_Errors(t *testing.T) {
	tests := []struct {
		name       string
		classifier *fakeClassifier
		language   string
		want       error
	}{
		{"transport", &fakeClassifier{err: &ClassifierError{StatusCode: 500}}, "de", ErrClassifierTransport},
		{"parse", &fakeClassifier{answer: "no idea"}, "de", ErrClassifierParse},
		{"language", &fakeClassifier{answer: chatAnswer}, "zz", ErrUnsupportedLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newDefinitionService(newMemoryVocabularyStore(), tt.classifier, &memoryUsageStore{}, true)
			_, err := svc.Define(context.Background(), DefineRequest{Word: "Haus", Language: tt.language})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDefineBatch(t *testing.T) {
	store := newMemoryVocabularyStore()
	store.cache["chat|fr"] = &domain.VocabularyEntry{Word: "chat", Language: "fr", Definition: "cat", Translation: "cat"}
	classifier := &fakeClassifier{
		answer: "```json\n[{\"word\":\"chien\",\"definition\":\"dog\",\"translation\":\"dog\",\"cefr\":\"A1\",\"type\":\"noun\"}," +
			"{\"word\":\"oiseau\",\"definition\":\"bird\",\"translation\":\"bird\",\"cefr\":\"A1\",\"type\":\"noun\"}]\n```",
		in: 100, out: 80,
	}
	usage := &memoryUsageStore{}
	svc := newDefinitionService(store, classifier, usage, true)

	got, err := svc.DefineBatch(context.Background(), []string{"chat", "chien", " ", "oiseau"}, "FR")
	if err != nil {
		t.Fatal(err)
	}
	if got.Total != 3 || len(got.Results) != 3 {
		t.Fatalf("results = %+v", got.Results)
	}
	if !got.Results[0].Cached || got.Results[0].Word != "chat" {
		t.Errorf("first result should be the cached word: %+v", got.Results[0])
	}
	if got.Results[1].Cached || got.Results[1].Word != "chien" {
		t.Errorf("second result = %+v", got.Results[1])
	}
	if !strings.Contains(classifier.prompts[0], "Define these French words: chien, oiseau.") {
		t.Errorf("prompt = %q", classifier.prompts[0])
	}
	if store.cache["oiseau|fr"] == nil || store.learned["chien"] == nil {
		t.Error("batch answers should be cached and learned")
	}
	if len(usage.rows) != 1 || usage.rows[0].Action != domain.ActionDefineBatch || usage.rows[0].TokensUsed != 180 {
		t.Errorf("usage = %+v", usage.rows)
	}
}

func TestDefineBatch_ParseFailureKeepsCachedResults(t *testing.T) {
	store := newMemoryVocabularyStore()
	store.cache["chat|fr"] = &domain.VocabularyEntry{Word: "chat", Language: "fr", Definition: "cat"}
	svc := newDefinitionService(store, &fakeClassifier{answer: "sorry"}, &memoryUsageStore{}, true)

	got, err := svc.DefineBatch(context.Background(), []string{"chat", "chien"}, "fr")
	if err != nil {
		t.Fatal(err)
	}
	if got.Total != 1 || got.Results[0].Word != "chat" {
		t.Errorf("results = %+v", got.Results)
	}
}

func TestDefineBatch_AllCachedSkipsModel(t *testing.T) {
	store := newMemoryVocabularyStore()
	store.cache["chat|fr"] = &domain.VocabularyEntry{Word: "chat", Language: "fr"}
	classifier := &fakeClassifier{}
	svc := newDefinitionService(store, classifier, &memoryUsageStore{}, true)

	if _, err := svc.DefineBatch(context.Background(), []string{"Chat"}, "fr"); err != nil {
		t.Fatal(err)
	}
	if classifier.calls != 0 {
		t.Error("classifier should not be called when every word is cached")
	}
}

package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/readlearn/backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VocabularyRepository serves the vocabulary cache and the local French dictionaries.
type VocabularyRepository struct {
	db *gorm.DB
}

// NewVocabularyRepository creates a new VocabularyRepository.
func NewVocabularyRepository(db *gorm.DB) *VocabularyRepository {
	return &VocabularyRepository{db: db}
}

// GetCached returns the cached definition for (word, language), or nil on a miss.
func (r *VocabularyRepository) GetCached(ctx context.Context, word, language string) (*domain.VocabularyEntry, error) {
	var entry domain.VocabularyEntry
	err := r.db.WithContext(ctx).
		Where("word = ? AND language = ?", strings.ToLower(word), language).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// InsertCached stores a definition; an existing (word, language) row wins.
func (r *VocabularyRepository) InsertCached(ctx context.Context, entry *domain.VocabularyEntry) error {
	entry.Word = strings.ToLower(entry.Word)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry).Error
}

// LookupFrequency searches the French frequency dictionary case-insensitively.
func (r *VocabularyRepository) LookupFrequency(ctx context.Context, word string) (*domain.DictionaryWord, error) {
	var entry domain.DictionaryWord
	err := r.db.WithContext(ctx).
		Where("LOWER(word) = LOWER(?)", strings.TrimSpace(word)).
		Order("id").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// LookupLearned searches the learned dictionary case-insensitively.
func (r *VocabularyRepository) LookupLearned(ctx context.Context, word string) (*domain.LearnedWord, error) {
	var entry domain.LearnedWord
	err := r.db.WithContext(ctx).
		Where("LOWER(word) = LOWER(?)", strings.TrimSpace(word)).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpsertLearned inserts a learned word or bumps learn_count when it already exists.
func (r *VocabularyRepository) UpsertLearned(ctx context.Context, word *domain.LearnedWord) error {
	word.Word = strings.ToLower(word.Word)
	word.LearnCount = 1
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "word"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"learn_count": gorm.Expr("learned_dictionary.learn_count + 1"),
		}),
	}).Create(word).Error
}

// ImportDictionary bulk-inserts frequency dictionary rows.
func (r *VocabularyRepository) ImportDictionary(ctx context.Context, words []domain.DictionaryWord) error {
	if len(words) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(words, 200).Error
}

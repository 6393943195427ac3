package repository

import (
	"context"
	"time"

	"github.com/readlearn/backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleEmbeddingRepository stores similarity-index entries, one row per URL.
type ArticleEmbeddingRepository struct {
	db *gorm.DB
}

// NewArticleEmbeddingRepository creates a new ArticleEmbeddingRepository.
func NewArticleEmbeddingRepository(db *gorm.DB) *ArticleEmbeddingRepository {
	return &ArticleEmbeddingRepository{db: db}
}

// UpsertOnConflict inserts the entry or, for a URL already indexed, replaces its
// embedding, level, word count and preview. access_count is kept.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entry: entry keyed by URL.
// Returns:
//   - error: non-nil if the statement fails.
func (r *ArticleEmbeddingRepository) UpsertOnConflict(ctx context.Context, entry *domain.ArticleEmbedding) error {
	entry.LastAccessed = time.Now().UTC()

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"embedding", "cefr_level", "language", "word_count", "text_preview", "url_hash", "last_accessed",
		}),
	}).Create(entry).Error
}

// Touch increments access_count and refreshes last_accessed for url.
func (r *ArticleEmbeddingRepository) Touch(ctx context.Context, url string) error {
	return r.db.WithContext(ctx).
		Model(&domain.ArticleEmbedding{}).
		Where("url = ?", url).
		Updates(map[string]interface{}{
			"access_count":  gorm.Expr("access_count + 1"),
			"last_accessed": time.Now().UTC(),
		}).Error
}

// ScanEmbeddings streams every stored embedding in batches to fn.
// Returning an error from fn stops the scan.
func (r *ArticleEmbeddingRepository) ScanEmbeddings(ctx context.Context, batchSize int, fn func([]domain.ArticleEmbedding) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var batch []domain.ArticleEmbedding
	return r.db.WithContext(ctx).
		Select("id", "url", "embedding", "cefr_level", "language", "word_count").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

// Count returns the number of indexed URLs.
func (r *ArticleEmbeddingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ArticleEmbedding{}).Count(&count).Error
	return count, err
}

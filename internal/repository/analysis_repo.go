package repository

import (
	"context"
	"time"

	"github.com/readlearn/backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalysisRepository is the exact-match cache: analyses keyed by sample hash.
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new AnalysisRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *AnalysisRepository: repository instance bound to db.
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// GetByHash retrieves the cached analysis for a text hash.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - hash: hex sha256 of the normalised sample.
// Returns:
//   - *domain.Analysis: cached entry if found.
//   - error: gorm.ErrRecordNotFound on a miss, other errors on failure.
func (r *AnalysisRepository) GetByHash(ctx context.Context, hash string) (*domain.Analysis, error) {
	var analysis domain.Analysis
	if err := r.db.WithContext(ctx).Where("text_hash = ?", hash).First(&analysis).Error; err != nil {
		return nil, err
	}
	return &analysis, nil
}

// RecordHit bumps hit_count and last_accessed in one statement.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - hash: text hash of the entry that was served.
// Returns:
//   - error: non-nil if the update fails.
func (r *AnalysisRepository) RecordHit(ctx context.Context, hash string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Analysis{}).
		Where("text_hash = ?", hash).
		Updates(map[string]interface{}{
			"hit_count":     gorm.Expr("hit_count + 1"),
			"last_accessed": time.Now().UTC(),
		}).Error
}

// UpsertOnConflict inserts a fresh entry with hit_count 1, or, when another request
// already stored the same hash, only bumps hit_count and last_accessed. The stored
// classification is left untouched on conflict.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - analysis: entry to insert; HitCount and LastAccessed are set here.
// Returns:
//   - error: non-nil if the statement fails.
func (r *AnalysisRepository) UpsertOnConflict(ctx context.Context, analysis *domain.Analysis) error {
	now := time.Now().UTC()
	analysis.HitCount = 1
	analysis.LastAccessed = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "text_hash"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"hit_count":     gorm.Expr("analyses.hit_count + 1"),
			"last_accessed": now,
		}),
	}).Create(analysis).Error
}

// Stats returns the number of cached analyses and the sum of their hit counts.
func (r *AnalysisRepository) Stats(ctx context.Context) (total int64, totalHits int64, err error) {
	var row struct {
		Total     int64
		TotalHits int64
	}
	err = r.db.WithContext(ctx).
		Model(&domain.Analysis{}).
		Select("COUNT(*) AS total, COALESCE(SUM(hit_count), 0) AS total_hits").
		Scan(&row).Error
	return row.Total, row.TotalHits, err
}

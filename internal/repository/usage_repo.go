package repository

import (
	"context"
	"time"

	"github.com/readlearn/backend/internal/domain"
	"gorm.io/gorm"
)

// UsageRepository appends and aggregates usage_log rows.
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Insert appends one usage row. Timestamp defaults to now.
func (r *UsageRepository) Insert(ctx context.Context, row *domain.UsageLog) error {
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// SummarySince aggregates usage rows newer than since.
func (r *UsageRepository) SummarySince(ctx context.Context, since time.Time) (*domain.UsageSummary, error) {
	var summary domain.UsageSummary
	err := r.db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Select(`COUNT(*) AS total_requests,
			COALESCE(SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END), 0) AS cache_hits,
			COALESCE(SUM(tokens_used), 0) AS total_tokens,
			COALESCE(SUM(cost_usd), 0) AS total_cost`).
		Where("timestamp > ?", since.UTC()).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

package domain

import "time"

// Outcome records which resolution path produced (or failed to produce) a result.
type Outcome string

const (
	OutcomeExactHit       Outcome = "exact_hit"
	OutcomeSimilarityHit  Outcome = "similarity_hit"
	OutcomeCacheHit       Outcome = "cache_hit"
	OutcomeDictionary     Outcome = "dictionary"
	OutcomeRemote         Outcome = "remote"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeParseError     Outcome = "parse_error"
)

// Usage actions.
const (
	ActionAnalyze     = "analyze"
	ActionDefine      = "define"
	ActionDefineBatch = "define-batch"
)

// UsageLog is an append-only accounting row.
type UsageLog struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	Action     string    `gorm:"type:varchar(32);index:idx_usage_log_action" json:"action"`
	Language   string    `gorm:"type:varchar(8)" json:"language"`
	CacheHit   bool      `json:"cache_hit"`
	Outcome    Outcome   `gorm:"type:varchar(32)" json:"outcome"`
	TokensUsed int       `json:"tokens_used"`
	CostUSD    float64   `gorm:"column:cost_usd" json:"cost_usd"`
	Timestamp  time.Time `gorm:"index:idx_usage_log_timestamp" json:"timestamp"`
}

// TableName returns the table name for UsageLog.
func (UsageLog) TableName() string {
	return "usage_log"
}

// UsageSummary aggregates usage rows over a time window.
type UsageSummary struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	TotalTokens   int64   `json:"total_tokens"`
	TotalCost     float64 `json:"total_cost"`
}

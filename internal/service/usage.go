package service

import (
	"context"
	"time"

	"github.com/readlearn/backend/internal/domain"
	"github.com/readlearn/backend/internal/logger"
)

// UsageEvent is one accounted request.
type UsageEvent struct {
	Action   string
	Language string
	CacheHit bool
	Tokens   int
	CostUSD  float64
	Outcome  domain.Outcome
}

// UsageStore persists usage rows.
type UsageStore interface {
	Insert(ctx context.Context, row *domain.UsageLog) error
	SummarySince(ctx context.Context, since time.Time) (*domain.UsageSummary, error)
}

// UsageAccountant records usage when analytics are enabled. Recording never fails
// the request it accounts for.
type UsageAccountant struct {
	store   UsageStore
	enabled bool
	now     func() time.Time
}

// NewUsageAccountant creates an accountant; with enabled false every Record is a no-op.
func NewUsageAccountant(store UsageStore, enabled bool) *UsageAccountant {
	return &UsageAccountant{store: store, enabled: enabled, now: time.Now}
}

// Enabled reports whether events are persisted.
func (a *UsageAccountant) Enabled() bool {
	return a != nil && a.enabled && a.store != nil
}

// Record persists ev. Errors are logged at warn level and dropped.
func (a *UsageAccountant) Record(ctx context.Context, ev UsageEvent) {
	if !a.Enabled() {
		return
	}

	row := &domain.UsageLog{
		Action:     ev.Action,
		Language:   ev.Language,
		CacheHit:   ev.CacheHit,
		Outcome:    ev.Outcome,
		TokensUsed: ev.Tokens,
		CostUSD:    ev.CostUSD,
		Timestamp:  a.now().UTC(),
	}
	// Record even when the client has gone away.
	if err := a.store.Insert(context.WithoutCancel(ctx), row); err != nil {
		logger.FromContext(ctx).WithError(err).WithFields(logger.Fields{
			"action":            ev.Action,
			logger.FieldOutcome: string(ev.Outcome),
			logger.FieldTokens:  ev.Tokens,
		}).Warn("Failed to record usage")
	}
}

// Summary24h aggregates the last 24 hours. Disabled accounting yields an empty summary.
func (a *UsageAccountant) Summary24h(ctx context.Context) (*domain.UsageSummary, error) {
	if !a.Enabled() {
		return &domain.UsageSummary{}, nil
	}
	return a.store.SummarySince(ctx, a.now().Add(-24*time.Hour))
}

// Cost returns the USD cost of a call from per-million token prices.
func Cost(inputTokens, outputTokens int, inputPerMillion, outputPerMillion float64) float64 {
	return (float64(inputTokens)*inputPerMillion + float64(outputTokens)*outputPerMillion) / 1_000_000
}

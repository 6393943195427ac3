package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/readlearn/backend/internal/domain"
)

type failingUsageStore struct{ memoryUsageStore }

func (s *failingUsageStore) Insert(context.Context, *domain.UsageLog) error {
	return errors.New("table locked")
}

func TestUsageAccountant_DisabledIsNoop(t *testing.T) {
	store := &memoryUsageStore{}
	acc := NewUsageAccountant(store, false)
	acc.Record(context.Background(), UsageEvent{Action: domain.ActionAnalyze})
	if len(store.rows) != 0 {
		t.Error("disabled accountant wrote a row")
	}

	sum, err := acc.Summary24h(context.Background())
	if err != nil || sum.TotalRequests != 0 {
		t.Errorf("summary = %+v, err = %v", sum, err)
	}

	var nilAcc *UsageAccountant
	nilAcc.Record(context.Background(), UsageEvent{})
}

func TestUsageAccountant_RecordsAfterCancel(t *testing.T) {
	store := &memoryUsageStore{}
	acc := NewUsageAccountant(store, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	acc.Record(ctx, UsageEvent{Action: domain.ActionDefine, Language: "fr", Tokens: 12, CostUSD: 0.01, Outcome: domain.OutcomeRemote})

	if len(store.rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(store.rows))
	}
	row := store.rows[0]
	if row.Action != domain.ActionDefine || row.TokensUsed != 12 || row.Outcome != domain.OutcomeRemote {
		t.Errorf("row = %+v", row)
	}
}

func TestUsageAccountant_StoreErrorIsSwallowed(t *testing.T) {
	acc := NewUsageAccountant(&failingUsageStore{}, true)
	acc.Record(context.Background(), UsageEvent{Action: domain.ActionAnalyze})
}

func TestUsageAccountant_Summary24h(t *testing.T) {
	store := &memoryUsageStore{}
	acc := NewUsageAccountant(store, true)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	acc.now = func() time.Time { return now }

	acc.Record(context.Background(), UsageEvent{Action: domain.ActionAnalyze, Tokens: 100, CostUSD: 0.5})
	acc.Record(context.Background(), UsageEvent{Action: domain.ActionAnalyze, CacheHit: true})
	store.rows = append(store.rows, domain.UsageLog{Timestamp: now.Add(-25 * time.Hour), TokensUsed: 999})

	sum, err := acc.Summary24h(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalRequests != 2 || sum.CacheHits != 1 || sum.TotalTokens != 100 || sum.TotalCost != 0.5 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestCost(t *testing.T) {
	tests := []struct {
		in, out int
		want    float64
	}{
		{0, 0, 0},
		{1_000_000, 0, 0.80},
		{0, 1_000_000, 4.00},
		{1200, 150, 0.00156},
	}
	for _, tt := range tests {
		if got := Cost(tt.in, tt.out, 0.80, 4.00); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Cost(%d, %d) = %v, want %v", tt.in, tt.out, got, tt.want)
		}
	}
}

func TestParseFailureKey(t *testing.T) {
	at := time.Date(2026, 1, 9, 23, 30, 0, 0, time.FixedZone("CET", 3600))
	if got := ParseFailureKey(at, "abc"); got != "parse-failures/2026/01/09/abc.txt" {
		t.Errorf("key = %s", got)
	}
}

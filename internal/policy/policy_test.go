package policy

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/claimflow/internal/claim"
)

func TestInEffect(t *testing.T) {
	p := &Policy{
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EffectiveTo:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, p.InEffect(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.InEffect(p.EffectiveFrom), "window is inclusive")
	assert.True(t, p.InEffect(p.EffectiveTo), "window is inclusive")
	assert.False(t, p.InEffect(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.InEffect(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestExclusionRuleMatches(t *testing.T) {
	amount := decimal.NewFromInt(100)

	byType := ExclusionRule{ID: "storm", LossTypes: []string{"weather"}, Amount: &amount}
	assert.True(t, byType.Matches(&claim.Draft{Incident: claim.Incident{LossType: "weather"}}))
	assert.True(t, byType.Matches(&claim.Draft{Incident: claim.Incident{LossType: "Weather"}}))
	assert.False(t, byType.Matches(&claim.Draft{Incident: claim.Incident{LossType: "fire"}}))

	byKeyword := ExclusionRule{ID: "flood", Keyword: "flood", Amount: &amount}
	assert.True(t, byKeyword.Matches(&claim.Draft{
		Incident: claim.Incident{Description: "the basement flood ruined the carpet"},
	}))
	assert.False(t, byKeyword.Matches(&claim.Draft{
		Incident: claim.Incident{Description: "the floodlight fell off the garage"},
	}), "keyword matching is word-bounded")
}

func TestStaticLedgerLookup(t *testing.T) {
	p := &Policy{ID: "pol-1", Number: "AUTO-1001", Product: claim.ProductAuto}
	ledger := NewStaticLedger(p)

	got, err := ledger.GetPolicy(context.Background(), "pol-1")
	assert.NoError(t, err)
	assert.Same(t, p, got)

	got, err = ledger.GetPolicy(context.Background(), "AUTO-1001")
	assert.NoError(t, err)
	assert.Same(t, p, got)

	_, err = ledger.GetPolicy(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

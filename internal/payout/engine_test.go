package payout

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimflow/internal/claim"
	"github.com/claimflow/internal/policy"
)

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func testPolicy() *policy.Policy {
	return &policy.Policy{
		ID:            "pol-1",
		Number:        "AUTO-1001",
		Product:       claim.ProductAuto,
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EffectiveTo:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Deductible:    dec("500"),
		CoverageLimit: dec("20000"),
	}
}

func draftWithLoss(amount string) *claim.Draft {
	return &claim.Draft{
		Product:  claim.ProductAuto,
		Incident: claim.Incident{LossType: "collision", Description: "rear-ended at a light"},
		Damages: []claim.Damage{
			{ID: "dm-1", Area: "rear", EstimatedAmount: decimal.RequireFromString(amount)},
		},
	}
}

func TestCalculateSimpleDeductible(t *testing.T) {
	bd, err := Calculate(testPolicy(), draftWithLoss("3000"))
	require.NoError(t, err)

	assert.True(t, bd.Net.Equal(decimal.NewFromInt(2500)), "net = %s", bd.Net)
	assert.True(t, bd.GrossLoss.Equal(decimal.NewFromInt(3000)))
	assert.True(t, bd.Deductible.Equal(decimal.NewFromInt(500)))
	assert.Empty(t, bd.Adjustments)
	assert.False(t, bd.IsTotalLoss)
}

func TestCalculateNetFloorsAtZero(t *testing.T) {
	bd, err := Calculate(testPolicy(), draftWithLoss("300"))
	require.NoError(t, err)
	assert.True(t, bd.Net.IsZero(), "net = %s", bd.Net)
}

func TestCalculateExclusionOrderMatters(t *testing.T) {
	flat := policy.ExclusionRule{
		ID: "old_damage", LossTypes: []string{"collision"}, Amount: dec("1000"),
	}
	pct := policy.ExclusionRule{
		ID: "wear_and_tear", LossTypes: []string{"collision"}, Percent: dec("10"),
	}
	d := draftWithLoss("10500") // 10000 after deductible

	// Flat first: (10000 - 1000) then -10% of 9000 -> 8100.
	p := testPolicy()
	p.Exclusions = []policy.ExclusionRule{flat, pct}
	bd, err := Calculate(p, d)
	require.NoError(t, err)
	assert.True(t, bd.Net.Equal(decimal.NewFromInt(8100)), "net = %s", bd.Net)

	// Percent first: -10% of 10000 then -1000 -> 8000.
	p = testPolicy()
	p.Exclusions = []policy.ExclusionRule{pct, flat}
	bd, err = Calculate(p, d)
	require.NoError(t, err)
	assert.True(t, bd.Net.Equal(decimal.NewFromInt(8000)), "net = %s", bd.Net)
}

func TestCalculateSkipsNonMatchingRules(t *testing.T) {
	p := testPolicy()
	p.Exclusions = []policy.ExclusionRule{
		{ID: "flood", LossTypes: []string{"weather"}, Amount: dec("5000")},
	}
	bd, err := Calculate(p, draftWithLoss("3000"))
	require.NoError(t, err)
	assert.True(t, bd.Net.Equal(decimal.NewFromInt(2500)))
	assert.Empty(t, bd.Adjustments)
}

func TestCalculateKeywordExclusionMatchesWholeWords(t *testing.T) {
	p := testPolicy()
	p.Exclusions = []policy.ExclusionRule{
		{ID: "water_damage", Keyword: "water", Amount: dec("1000")},
	}

	d := draftWithLoss("3000")
	d.Incident.Description = "parked at the waterfront overnight"
	bd, err := Calculate(p, d)
	require.NoError(t, err)
	assert.Empty(t, bd.Adjustments, "substring must not match")

	d.Incident.Description = "water got into the engine bay"
	bd, err = Calculate(p, d)
	require.NoError(t, err)
	require.Len(t, bd.Adjustments, 1)
	assert.Equal(t, "water_damage", bd.Adjustments[0].Rule)
}

func TestCalculateCoverageLimitCapRecordedAsAdjustment(t *testing.T) {
	bd, err := Calculate(testPolicy(), draftWithLoss("50000"))
	require.NoError(t, err)

	assert.True(t, bd.Net.Equal(decimal.NewFromInt(20000)), "net = %s", bd.Net)
	assert.True(t, bd.IsTotalLoss)
	require.Len(t, bd.Adjustments, 1)
	assert.Equal(t, LimitCapRule, bd.Adjustments[0].Rule)

	// The invariant holds with the cap as an explicit adjustment:
	// net = gross - deductible - sum(adjustments).
	sum := decimal.Zero
	for _, a := range bd.Adjustments {
		sum = sum.Add(a.Amount)
	}
	assert.True(t, bd.Net.Equal(bd.GrossLoss.Sub(bd.Deductible).Sub(sum)))
}

func TestCalculateTotalLossThreshold(t *testing.T) {
	p := testPolicy()
	p.TotalLossThreshold = dec("15000")
	bd, err := Calculate(p, draftWithLoss("16000"))
	require.NoError(t, err)
	assert.True(t, bd.IsTotalLoss)
	assert.True(t, bd.Net.Equal(decimal.NewFromInt(15500)))
}

func TestCalculateIncompletePolicyData(t *testing.T) {
	p := testPolicy()
	p.Deductible = nil
	_, err := Calculate(p, draftWithLoss("3000"))
	assert.ErrorIs(t, err, policy.ErrDataIncomplete)

	p = testPolicy()
	p.CoverageLimit = nil
	_, err = Calculate(p, draftWithLoss("3000"))
	assert.ErrorIs(t, err, policy.ErrDataIncomplete)

	_, err = Calculate(nil, draftWithLoss("3000"))
	assert.ErrorIs(t, err, policy.ErrDataIncomplete)
}

func TestCalculateExclusionCannotOvershootRemaining(t *testing.T) {
	p := testPolicy()
	p.Exclusions = []policy.ExclusionRule{
		{ID: "big_flat", LossTypes: []string{"collision"}, Amount: dec("99999")},
	}
	bd, err := Calculate(p, draftWithLoss("3000"))
	require.NoError(t, err)
	assert.True(t, bd.Net.IsZero())
	require.Len(t, bd.Adjustments, 1)
	assert.True(t, bd.Adjustments[0].Amount.Equal(decimal.NewFromInt(2500)))
}

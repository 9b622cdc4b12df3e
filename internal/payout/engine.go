// Package payout computes the deterministic, policy-grounded payout for a
// validated claim draft. All monetary math uses decimals; the conversation
// layer renders these numbers but never computes them.
package payout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/claimflow/internal/claim"
	"github.com/claimflow/internal/policy"
)

// LimitCapRule is the synthetic adjustment recorded when the payout is capped
// at the policy's coverage limit.
const LimitCapRule = "coverage_limit"

// Adjustment is one exclusion rule applied to the payout.
type Adjustment struct {
	Rule   string          `json:"rule"`
	Amount decimal.Decimal `json:"amount"`
}

// Breakdown is the result of a payout calculation.
//
// Invariant: Net = max(0, GrossLoss - Deductible - sum(Adjustments)) and is
// never negative.
type Breakdown struct {
	GrossLoss   decimal.Decimal `json:"gross_loss"`
	Deductible  decimal.Decimal `json:"deductible"`
	Adjustments []Adjustment    `json:"adjustments,omitempty"`
	Net         decimal.Decimal `json:"net"`
	IsTotalLoss bool            `json:"is_total_loss"`
}

// Calculate derives the payout breakdown from the policy and the collected
// claim facts.
//
// The gross loss is the claimant's corroborated damage estimate. The
// deductible is subtracted once, then each matching exclusion rule is applied
// in the policy's declared order: flat rules subtract their amount,
// percentage rules subtract a share of what remains at that point, so rule
// order is not commutative and must be preserved exactly. The net payout
// floors at zero and is capped at the coverage limit; the cap is recorded as
// an explicit adjustment so the breakdown always sums.
//
// Fails with policy.ErrDataIncomplete when the deductible or coverage limit
// is missing. Missing policy data is reported, never defaulted.
func Calculate(p *policy.Policy, d *claim.Draft) (*Breakdown, error) {
	if p == nil {
		return nil, policy.ErrDataIncomplete
	}
	if p.Deductible == nil || p.CoverageLimit == nil {
		return nil, fmt.Errorf("policy %s: %w", p.ID, policy.ErrDataIncomplete)
	}

	gross := d.EstimatedLoss().Round(2)
	deductible := p.Deductible.Round(2)
	limit := p.CoverageLimit.Round(2)

	remaining := gross.Sub(deductible)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	var adjustments []Adjustment
	for _, rule := range p.Exclusions {
		if !rule.Matches(d) {
			continue
		}
		var amount decimal.Decimal
		switch {
		case rule.Percent != nil:
			amount = remaining.Mul(*rule.Percent).Div(decimal.NewFromInt(100)).Round(2)
		case rule.Amount != nil:
			amount = rule.Amount.Round(2)
		default:
			continue
		}
		if amount.GreaterThan(remaining) {
			amount = remaining
		}
		adjustments = append(adjustments, Adjustment{Rule: rule.ID, Amount: amount})
		remaining = remaining.Sub(amount)
	}

	if remaining.GreaterThan(limit) {
		excess := remaining.Sub(limit)
		adjustments = append(adjustments, Adjustment{Rule: LimitCapRule, Amount: excess})
		remaining = limit
	}

	isTotalLoss := gross.GreaterThan(limit)
	if p.TotalLossThreshold != nil && gross.GreaterThanOrEqual(*p.TotalLossThreshold) {
		isTotalLoss = true
	}

	return &Breakdown{
		GrossLoss:   gross,
		Deductible:  deductible,
		Adjustments: adjustments,
		Net:         remaining,
		IsTotalLoss: isTotalLoss,
	}, nil
}

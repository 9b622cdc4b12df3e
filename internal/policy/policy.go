// Package policy defines the read-only policy ledger contract and the policy
// data consumed by validation and payout calculation.
package policy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/claimflow/internal/claim"
)

var (
	// ErrNotFound means the ledger has no policy with the given ID or number.
	ErrNotFound = errors.New("policy not found")
	// ErrDataIncomplete means a required policy field (deductible, coverage
	// limit) is missing. Calculation must report this, never default it.
	ErrDataIncomplete = errors.New("policy data incomplete")
)

// ExclusionRule reduces a payout when it matches the claim facts. Rules carry
// either a flat amount or a percentage of the remaining payout; the policy's
// declared order is significant for percentage rules.
type ExclusionRule struct {
	ID        string           `json:"id"`
	LossTypes []string         `json:"loss_types,omitempty"` // matches incident loss type
	Keyword   string           `json:"keyword,omitempty"`    // matches incident description
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Percent   *decimal.Decimal `json:"percent,omitempty"` // of the remaining payout
}

// Matches reports whether the rule applies to the draft's incident facts.
func (r ExclusionRule) Matches(d *claim.Draft) bool {
	for _, lt := range r.LossTypes {
		if strings.EqualFold(lt, d.Incident.LossType) {
			return true
		}
	}
	if r.Keyword != "" {
		desc := strings.ToLower(d.Incident.Description)
		if containsWord(desc, strings.ToLower(r.Keyword)) {
			return true
		}
	}
	return false
}

// containsWord matches kw in s on word boundaries so an exclusion like
// "water" does not match "waterfront".
func containsWord(s, kw string) bool {
	start := 0
	for {
		idx := strings.Index(s[start:], kw)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(kw)
		beforeOK := idx == 0 || !isWordByte(s[idx-1])
		afterOK := end == len(s) || !isWordByte(s[end])
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
		if start >= len(s) {
			return false
		}
	}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// Policy is the slice of a policy record the FNOL core consumes.
type Policy struct {
	ID            string            `json:"id"`
	Number        string            `json:"number"`
	Product       claim.ProductLine `json:"product"`
	HolderName    string            `json:"holder_name,omitempty"`
	EffectiveFrom time.Time         `json:"effective_from"`
	EffectiveTo   time.Time         `json:"effective_to"`

	Deductible         *decimal.Decimal `json:"deductible,omitempty"`
	CoverageLimit      *decimal.Decimal `json:"coverage_limit,omitempty"`
	TotalLossThreshold *decimal.Decimal `json:"total_loss_threshold,omitempty"`
	Exclusions         []ExclusionRule  `json:"exclusions,omitempty"`
}

// InEffect reports whether t falls inside the policy's effective window.
func (p *Policy) InEffect(t time.Time) bool {
	return !t.Before(p.EffectiveFrom) && !t.After(p.EffectiveTo)
}

// Ledger is the read-only lookup contract against the external policy system.
type Ledger interface {
	// GetPolicy returns the policy for the given ID or policy number.
	// Fails with ErrNotFound when no such policy exists.
	GetPolicy(ctx context.Context, id string) (*Policy, error)
}

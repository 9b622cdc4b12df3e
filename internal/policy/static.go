package policy

import "context"

// StaticLedger serves a fixed set of policies from memory. Used in tests and
// for local development without a Postgres instance.
type StaticLedger struct {
	policies map[string]*Policy
}

// NewStaticLedger indexes the given policies by ID and number.
func NewStaticLedger(policies ...*Policy) *StaticLedger {
	m := make(map[string]*Policy, len(policies)*2)
	for _, p := range policies {
		m[p.ID] = p
		if p.Number != "" {
			m[p.Number] = p
		}
	}
	return &StaticLedger{policies: m}
}

// GetPolicy implements Ledger.
func (l *StaticLedger) GetPolicy(_ context.Context, id string) (*Policy, error) {
	p, ok := l.policies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

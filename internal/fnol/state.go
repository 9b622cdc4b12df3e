package fnol

import (
	"sync"

	"github.com/claimflow/internal/claim"
	"github.com/claimflow/internal/reconcile"
)

// transitionRule is one guarded edge out of a state. Rules are checked in
// order; the first match wins. An empty target means "next required state in
// traversal order".
type transitionRule struct {
	when   func(s *Session) bool
	to     claim.State
	reason string
}

// transitions holds the non-default edges. Every state also has the implicit
// default edge to claim.NextRequired.
var transitions = map[claim.State][]transitionRule{
	claim.StateSafetyCheck: {
		{
			when:   func(s *Session) bool { return s.Draft.Emergency },
			to:     claim.StateHandoff,
			reason: "Claimant reported an active emergency during the safety check.",
		},
	},
	claim.StateInjuries: {
		{
			when:   func(s *Session) bool { return s.Draft.HasSevereInjury() },
			to:     claim.StateHandoff,
			reason: "A severe or fatal injury was reported; a human adjuster must take over.",
		},
	},
}

// nextStateFor resolves the outgoing edge for the session's current state
// after it validated. Returns the target state and, for escalation edges, the
// reason.
func nextStateFor(s *Session) (claim.State, string) {
	for _, rule := range transitions[s.Current] {
		if rule.when(s) {
			return rule.to, rule.reason
		}
	}
	return claim.NextRequired(s.Current, s.Draft.Product, s.Completed), ""
}

// disputeRoute maps a reconciliation dispute back to the conversation state
// and prompt that can re-collect the field. The loss amount is collected in a
// different state per product line, so the route depends on the product; a
// product line is never routed into a state it skips.
func disputeRoute(pl claim.ProductLine, field string) (claim.State, string) {
	switch field {
	case reconcile.FieldIncidentDate, reconcile.FieldIncidentLocation:
		return claim.StateIncidentCore, field
	case reconcile.FieldDamageAmount:
		if claim.SkipsState(pl, claim.StateDamageEvidence) {
			return claim.StateLossModule, "loss.billed_amount"
		}
		return claim.StateDamageEvidence, "damage.amount"
	}
	return "", ""
}

// keyLock hands out a non-blocking per-thread mutex so only one turn per
// session runs at a time. Lock entries are never reaped; the per-key cost is
// one mutex and session counts are bounded by the store TTL.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*sync.Mutex)}
}

// TryLock acquires the lock for key without blocking. Returns an unlock
// function, or false when another holder is active.
func (k *keyLock) TryLock(key string) (func(), bool) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}

package fnol

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/claimflow/internal/audit"
	"github.com/claimflow/internal/claim"
	"github.com/claimflow/internal/evidence"
	"github.com/claimflow/internal/payout"
	"github.com/claimflow/internal/policy"
	"github.com/claimflow/internal/reconcile"
	"github.com/claimflow/internal/retry"
	"github.com/claimflow/internal/rules"
)

// Machine drives FNOL sessions: one instance serves all threads, with a
// per-thread lock guaranteeing a single writer per session.
type Machine struct {
	store    SessionStore
	ledger   policy.Ledger
	evidence evidence.Store

	thresholds reconcile.Thresholds
	retryCfg   retry.Config
	locks      *keyLock
	now        func() time.Time

	// poller, when set, schedules a background re-check for evidence whose
	// extraction is still running after the synchronous retry budget.
	poller func(ctx context.Context, threadID, evidenceID, evidenceType string) error
}

// Options tunes a Machine. Nil or zero values fall back to defaults; a
// non-nil Thresholds is taken verbatim, so an admin can deliberately set a
// zero confidence threshold.
type Options struct {
	Thresholds *reconcile.Thresholds
	Retry      retry.Config
	Now        func() time.Time
}

// New builds a session machine over the given collaborators.
func New(store SessionStore, ledger policy.Ledger, ev evidence.Store, opts Options) *Machine {
	thresholds := reconcile.DefaultThresholds()
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}
	if opts.Retry.MaxRetries == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Machine{
		store:      store,
		ledger:     ledger,
		evidence:   ev,
		thresholds: thresholds,
		retryCfg:   opts.Retry,
		locks:      newKeyLock(),
		now:        opts.Now,
	}
}

// SetEvidencePoller installs the background re-poll scheduler. Set after
// construction because the job queue needs the machine to build its workers.
func (m *Machine) SetEvidencePoller(fn func(ctx context.Context, threadID, evidenceID, evidenceType string) error) {
	m.poller = fn
}

// CreateSession starts a new FNOL conversation, optionally bound to a policy.
// An unknown policy ID fails with policy.ErrNotFound before any session state
// exists.
func (m *Machine) CreateSession(ctx context.Context, userID, policyID string) (*Session, error) {
	now := m.now()
	s := &Session{
		ThreadID: uuid.NewString(),
		Draft: claim.Draft{
			ID:         uuid.NewString(),
			UserID:     userID,
			ReportedAt: now,
		},
		Current:   claim.StateSafetyCheck,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if policyID != "" {
		pol, err := m.lookupPolicy(ctx, policyID)
		if err != nil {
			return nil, err
		}
		s.Draft.PolicyID = pol.ID
		s.Draft.Product = pol.Product
	}

	p := firstPrompt(claim.StateSafetyCheck, &s.Draft)
	s.Pending = p.pending()
	s.say("I'm sorry you're dealing with this. I'll walk you through reporting your loss, one step at a time.", now)
	s.say(p.question, now)
	s.Trail = audit.Record(s.Trail, s.ThreadID, audit.Event{
		At: now, State: string(s.Current), Action: "session_created", Actor: audit.ActorSystem,
	})

	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	log.Info().Str("thread_id", s.ThreadID).Str("policy_id", s.Draft.PolicyID).
		Msg("fnol session created")
	return s, nil
}

// Advance applies one claimant answer to the session. On validation failure
// the returned session carries the messages and nothing is persisted; the
// claimant re-answers the same question.
func (m *Machine) Advance(ctx context.Context, threadID string, in Input) (*Session, error) {
	unlock, ok := m.locks.TryLock(threadID)
	if !ok {
		return nil, fmt.Errorf("%w: thread %s", ErrSessionBusy, threadID)
	}
	defer unlock()

	stored, err := m.load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if stored.Terminal() {
		return nil, fmt.Errorf("%w: session is %s", ErrSessionTerminated, stored.Status)
	}

	now := m.now()
	s := stored.Clone()
	s.ValidationErrors = nil
	s.hear(inputText(in), now)

	p := promptFor(s.Current, s.Pending.Field)
	if p == nil {
		return nil, fmt.Errorf("session %s has no pending question in state %s", threadID, s.Current)
	}

	before, after, verrs := applyAnswer(&s.Draft, p, in)
	if len(verrs) > 0 {
		return failTurn(stored, verrs), nil
	}
	s.Trail = audit.Record(s.Trail, s.ThreadID, audit.Event{
		At: now, State: string(s.Current), Action: "field_set", Actor: audit.ActorClaimant,
		Field: p.field, Before: before, After: after,
	})

	// A typed policy number resolves against the ledger immediately so a typo
	// is correctable on the spot.
	if p.field == "identity.policy_number" && !s.Draft.GuestMode {
		pol, err := m.lookupPolicy(ctx, s.Draft.PolicyID)
		if errors.Is(err, policy.ErrNotFound) {
			return failTurn(stored, []string{
				"We couldn't find a policy with that number. Check the number, or say \"skip\" to continue as a guest.",
			}), nil
		}
		if err != nil {
			return nil, err
		}
		s.Draft.PolicyID = pol.ID
		s.Draft.Product = pol.Product
	}

	// A state revisited after a reconciliation dispute completes as soon as
	// the disputed answer lands; the rest of its script was already answered.
	if !s.completedContains(s.Current) {
		if next := promptAfter(s.Current, &s.Draft, p.field); next != nil {
			s.Pending = next.pending()
			s.say(next.question, now)
			return s, m.commit(ctx, s, now)
		}
	}

	if done, err := m.completeState(ctx, s, stored, now); err != nil {
		return nil, err
	} else if done != nil {
		return done, nil // validation failed, stored copy with messages
	}
	return s, m.commit(ctx, s, now)
}

// completeState validates the current state and walks the session forward
// through transitions, auto-skipped states, triage, and claim creation.
// Returns a non-nil session only on a validation failure (the unmodified
// stored snapshot with messages attached).
func (m *Machine) completeState(ctx context.Context, s, stored *Session, now time.Time) (*Session, error) {
	vc := rules.Context{Now: now}
	if s.Draft.PolicyID != "" {
		pol, err := m.lookupPolicy(ctx, s.Draft.PolicyID)
		if err != nil && !errors.Is(err, policy.ErrNotFound) {
			return nil, err
		}
		vc.Policy = pol
	}

	if msgs := rules.ForState(s.Current, &s.Draft, vc); len(msgs) > 0 {
		return failTurn(stored, msgs), nil
	}

	s.markCompleted(s.Current)
	s.Trail = audit.Record(s.Trail, s.ThreadID, audit.Event{
		At: now, State: string(s.Current), Action: "state_completed", Actor: audit.ActorSystem,
	})

	for {
		next, reason := nextStateFor(s)
		if next == claim.StateHandoff {
			m.escalate(s, reason, now)
			return nil, nil
		}
		if next == claim.StateTriage {
			return nil, m.runTriage(ctx, s, now)
		}

		s.Current = next
		p := firstPrompt(next, &s.Draft)
		if p != nil {
			s.Pending = p.pending()
			s.say(p.question, now)
			return nil, nil
		}

		// Nothing to ask here (every prompt's predicate is false); validate
		// and fall through to the next state.
		if msgs := rules.ForState(s.Current, &s.Draft, vc); len(msgs) > 0 {
			return failTurn(stored, msgs), nil
		}
		s.markCompleted(s.Current)
	}
}

// runTriage executes the reconciliation protocol and acts on its verdict.
func (m *Machine) runTriage(ctx context.Context, s *Session, now time.Time) error {
	s.Current = claim.StateTriage
	verdict, err := reconcile.Run(ctx, &s.Draft, m.thresholds, now)
	if err != nil {
		return err
	}
	s.Trail = audit.Record(s.Trail, s.ThreadID, audit.Event{
		At: now, State: string(claim.StateTriage), Action: "triage_decision",
		Actor: audit.ActorSystem, After: string(verdict.Decision),
	})
	log.Info().Str("thread_id", s.ThreadID).Str("decision", string(verdict.Decision)).
		Float64("stmt_confidence", verdict.Statement.Confidence).
		Float64("doc_confidence", verdict.Documents.Confidence).
		Msg("triage verdict")

	switch verdict.Decision {
	case reconcile.DecisionApprove:
		s.markCompleted(claim.StateTriage)
		return m.createClaim(ctx, s, now)

	case reconcile.DecisionRequestMoreInfo:
		for _, f := range s.DisputedFields {
			if f == verdict.TargetField {
				// Second dispute on the same field: the follow-up did not
				// resolve it, so stop looping and escalate.
				m.escalate(s, "Follow-up answer still conflicts with the documents: "+verdict.Reason, now)
				return nil
			}
		}
		s.DisputedFields = append(s.DisputedFields, verdict.TargetField)
		owner, promptField := disputeRoute(s.Draft.Product, verdict.TargetField)
		p := promptFor(owner, promptField)
		if p == nil {
			m.escalate(s, "Reconciliation disputed a field the conversation cannot re-collect: "+verdict.TargetField, now)
			return nil
		}
		s.Current = owner
		pend := p.pending()
		pend.Question = verdict.FollowUp
		s.Pending = pend
		s.ValidationErrors = []string{verdict.Reason}
		s.say(verdict.FollowUp, now)
		return nil

	default:
		m.escalate(s, verdict.Reason, now)
		return nil
	}
}

// createClaim runs the payout calculation and closes the session as
// submitted. Guest sessions and incomplete policy data escalate instead;
// payouts are never computed from defaults.
func (m *Machine) createClaim(ctx context.Context, s *Session, now time.Time) error {
	s.Current = claim.StateClaimCreate

	if s.Draft.PolicyID == "" {
		m.escalate(s, "Guest-reported claims are filed by an agent; no policy is on record for a payout calculation.", now)
		return nil
	}
	pol, err := m.lookupPolicy(ctx, s.Draft.PolicyID)
	if errors.Is(err, policy.ErrNotFound) {
		m.escalate(s, "The policy on this claim could not be retrieved at filing time.", now)
		return nil
	}
	if err != nil {
		return err
	}

	bd, err := payout.Calculate(pol, &s.Draft)
	if errors.Is(err, policy.ErrDataIncomplete) {
		m.escalate(s, "The policy record is missing payout data; an adjuster will calculate your payout.", now)
		return nil
	}
	if err != nil {
		return err
	}

	s.Payout = bd
	s.markCompleted(claim.StateClaimCreate)
	s.Current = claim.StateNextSteps
	s.markCompleted(claim.StateNextSteps)
	s.Status = StatusSubmitted
	s.Pending = PendingInput{Kind: KindNone}
	s.Trail = audit.Record(s.Trail, s.ThreadID, audit.Event{
		At: now, State: string(claim.StateClaimCreate), Action: "claim_created",
		Actor: audit.ActorSystem, After: bd.Net.StringFixed(2),
	})

	msg := fmt.Sprintf(
		"Your claim %s has been filed. Based on your policy, the estimated payout is $%s ($%s loss minus your $%s deductible and any applicable adjustments).",
		s.Draft.ID, bd.Net.StringFixed(2), bd.GrossLoss.StringFixed(2), bd.Deductible.StringFixed(2))
	if bd.IsTotalLoss {
		msg += " This looks like it may be a total loss; a specialist will confirm the final valuation."
	}
	s.say(msg, now)
	s.say("You'll receive a confirmation shortly. An adjuster may reach out if anything else is needed.", now)
	return nil
}

func (m *Machine) escalate(s *Session, reason string, now time.Time) {
	s.Status = StatusEscalated
	s.Current = claim.StateHandoff
	s.EscalationReason = reason
	s.Pending = PendingInput{Kind: KindNone}
	s.Trail = audit.Record(s.Trail, s.ThreadID, audit.Event{
		At: now, State: string(claim.StateHandoff), Action: "escalated",
		Actor: audit.ActorSystem, After: reason,
	})
	s.say("I'm connecting you with a claims specialist who will take it from here. Everything you've told me so far is saved.", now)
	log.Warn().Str("thread_id", s.ThreadID).Str("reason", reason).Msg("session escalated")
}

// AttachEvidence records an uploaded document on the session and pulls its
// extracted entities. Extraction still in flight after the synchronous retry
// budget leaves the item pending and schedules a background re-poll.
func (m *Machine) AttachEvidence(ctx context.Context, threadID, evidenceID, evidenceType string) (*Session, error) {
	switch evidenceType {
	case claim.EvidenceDamagePhoto, claim.EvidencePoliceReport, claim.EvidenceRepairEst:
	default:
		return nil, fmt.Errorf("unsupported evidence type %q", evidenceType)
	}

	unlock, ok := m.locks.TryLock(threadID)
	if !ok {
		return nil, fmt.Errorf("%w: thread %s", ErrSessionBusy, threadID)
	}
	defer unlock()

	stored, err := m.load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if stored.Terminal() {
		return nil, fmt.Errorf("%w: session is %s", ErrSessionTerminated, stored.Status)
	}

	now := m.now()
	s := stored.Clone()
	s.ValidationErrors = nil

	ref := s.Draft.FindEvidence(evidenceID)
	if ref == nil {
		s.Draft.Evidence = append(s.Draft.Evidence, claim.EvidenceRef{
			ID: evidenceID, Type: evidenceType, Status: claim.EvidencePending,
		})
		ref = &s.Draft.Evidence[len(s.Draft.Evidence)-1]
	}

	var entities evidence.Entities
	err = retry.Do(ctx, m.retryCfg, "evidence.extract", func() error {
		var opErr error
		entities, opErr = m.evidence.GetExtractedEntities(ctx, evidenceID)
		return opErr
	})

	switch {
	case err == nil:
		ref.Status = claim.EvidenceReady
		ref.Entities = entities
		s.Trail = audit.Record(s.Trail, s.ThreadID, audit.Event{
			At: now, State: string(s.Current), Action: "evidence_ready",
			Actor: audit.ActorEvidence, Field: evidenceID, After: evidenceType,
		})
		s.say("Got it, your upload has been processed.", now)

	case errors.Is(err, evidence.ErrNotReady):
		ref.Status = claim.EvidencePending
		s.say("Your upload is still being processed. We'll pick it up automatically once it's ready.", now)
		if m.poller != nil {
			if perr := m.poller(ctx, threadID, evidenceID, evidenceType); perr != nil {
				log.Error().Err(perr).Str("thread_id", threadID).
					Str("evidence_id", evidenceID).Msg("failed to schedule evidence re-poll")
			}
		}

	case errors.Is(err, evidence.ErrInvalid):
		ref.Status = claim.EvidenceInvalid
		s.ValidationErrors = []string{"We couldn't process that upload. Please try a clearer photo or a different file."}
		s.say("We couldn't process that upload. Please try a clearer photo or a different file.", now)

	default:
		return nil, fmt.Errorf("%w: evidence store: %v", ErrSystemUnavailable, err)
	}

	return s, m.commit(ctx, s, now)
}

// Resume returns the session snapshot without mutating it. The pending input
// tells the caller exactly which question to re-render.
func (m *Machine) Resume(ctx context.Context, threadID string) (*Session, error) {
	return m.load(ctx, threadID)
}

// Abandon closes the session. Abandoning an already-abandoned session is a
// no-op; other terminal states refuse.
func (m *Machine) Abandon(ctx context.Context, threadID string) (*Session, error) {
	unlock, ok := m.locks.TryLock(threadID)
	if !ok {
		return nil, fmt.Errorf("%w: thread %s", ErrSessionBusy, threadID)
	}
	defer unlock()

	s, err := m.load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if s.Status == StatusAbandoned {
		return s, nil
	}
	if s.Terminal() {
		return nil, fmt.Errorf("%w: session is %s", ErrSessionTerminated, s.Status)
	}

	now := m.now()
	s.Status = StatusAbandoned
	s.Pending = PendingInput{Kind: KindNone}
	s.Trail = audit.Record(s.Trail, s.ThreadID, audit.Event{
		At: now, State: string(s.Current), Action: "abandoned", Actor: audit.ActorClaimant,
	})
	return s, m.commit(ctx, s, now)
}

// Summary is the read-only snapshot of what has been collected so far.
type Summary struct {
	ThreadID          string            `json:"thread_id"`
	Status            Status            `json:"status"`
	Current           claim.State       `json:"current_state"`
	ProgressPercent   int               `json:"progress_percent"`
	CanSubmit         bool              `json:"can_submit"`
	OutstandingIssues []string          `json:"outstanding_issues,omitempty"`
	Draft             claim.Draft       `json:"draft"`
	Payout            *payout.Breakdown `json:"payout,omitempty"`
}

// Summarize reports collected facts, outstanding validation issues across all
// required states, and whether the draft is ready for triage.
func (m *Machine) Summarize(ctx context.Context, threadID string) (*Summary, error) {
	s, err := m.load(ctx, threadID)
	if err != nil {
		return nil, err
	}

	vc := rules.Context{Now: m.now()}
	if s.Draft.PolicyID != "" {
		// Best effort: a ledger outage degrades the summary to draft-only
		// checks instead of failing the read.
		if pol, perr := m.lookupPolicy(ctx, s.Draft.PolicyID); perr == nil {
			vc.Policy = pol
		}
	}

	var issues []string
	allDone := true
	for _, st := range claim.RequiredStates(s.Draft.Product) {
		if st == claim.StateTriage {
			break
		}
		if !s.completedContains(st) {
			allDone = false
		}
		issues = append(issues, rules.ForState(st, &s.Draft, vc)...)
	}

	return &Summary{
		ThreadID:          s.ThreadID,
		Status:            s.Status,
		Current:           s.Current,
		ProgressPercent:   s.ProgressPercent,
		CanSubmit:         s.Status == StatusActive && allDone && len(issues) == 0,
		OutstandingIssues: issues,
		Draft:             s.Draft,
		Payout:            s.Payout,
	}, nil
}

// lookupPolicy fetches a policy with bounded retries. Transient ledger
// failures surface as ErrSystemUnavailable; ErrNotFound passes through.
func (m *Machine) lookupPolicy(ctx context.Context, id string) (*policy.Policy, error) {
	var pol *policy.Policy
	err := retry.Do(ctx, m.retryCfg, "policy.get", func() error {
		var opErr error
		pol, opErr = m.ledger.GetPolicy(ctx, id)
		return opErr
	})
	if err != nil {
		if errors.Is(err, policy.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: policy ledger: %v", ErrSystemUnavailable, err)
	}
	return pol, nil
}

func (m *Machine) commit(ctx context.Context, s *Session, now time.Time) error {
	s.UpdatedAt = now
	return m.save(ctx, s)
}

// load fetches the session snapshot. ErrSessionNotFound passes through; any
// other store failure surfaces as ErrSystemUnavailable so callers get the
// retry signal instead of an opaque error.
func (m *Machine) load(ctx context.Context, threadID string) (*Session, error) {
	s, err := m.store.Load(ctx, threadID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: session store: %v", ErrSystemUnavailable, err)
	}
	return s, nil
}

func (m *Machine) save(ctx context.Context, s *Session) error {
	if err := m.store.Save(ctx, s); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("%w: session store: %v", ErrSystemUnavailable, err)
	}
	return nil
}

// failTurn returns the stored snapshot untouched except for the attached
// validation messages. Nothing is persisted; the pending question stands.
func failTurn(stored *Session, msgs []string) *Session {
	out := stored.Clone()
	out.ValidationErrors = msgs
	return out
}

func inputText(in Input) string {
	if len(in.Values) > 0 {
		return strings.Join(in.Values, ", ")
	}
	return in.Value
}

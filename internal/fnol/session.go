// Package fnol is the conversational core: a resumable, per-thread session
// that walks a claimant through the loss report one question at a time,
// validates every answer, reconciles statements against documents, and hands
// an approved draft to the payout engine.
package fnol

import (
	"context"
	"encoding/json"
	"time"

	"github.com/claimflow/internal/audit"
	"github.com/claimflow/internal/claim"
	"github.com/claimflow/internal/payout"
)

// Status is the session lifecycle state. Everything except StatusActive is
// terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusSubmitted Status = "submitted"
	StatusEscalated Status = "escalated"
	StatusAbandoned Status = "abandoned"
)

// InputKind tells the caller what kind of answer the pending prompt expects.
type InputKind string

const (
	KindText        InputKind = "text"
	KindYesNo       InputKind = "yesno"
	KindSelect      InputKind = "select"
	KindMultiSelect InputKind = "multiselect"
	KindDate        InputKind = "date"
	KindTime        InputKind = "time"
	KindAmount      InputKind = "amount"
	KindPhoto       InputKind = "photo"
	KindNone        InputKind = "none"
)

// Option is one selectable value for select and multiselect prompts.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// PendingInput is the question the session is currently waiting on.
type PendingInput struct {
	Kind     InputKind `json:"kind"`
	Field    string    `json:"field,omitempty"`
	Question string    `json:"question,omitempty"`
	Options  []Option  `json:"options,omitempty"`
	Optional bool      `json:"optional,omitempty"`
}

// Message roles in the session transcript.
const (
	RoleClaimant  = "claimant"
	RoleAssistant = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Input is one claimant answer. Value carries single-valued answers; Values
// carries multiselect answers.
type Input struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// Session is the full resumable conversation snapshot. It is the unit of
// persistence: every committed turn writes the whole session back under a
// fresh version.
type Session struct {
	ThreadID string      `json:"thread_id"`
	Draft    claim.Draft `json:"draft"`

	Current   claim.State   `json:"current_state"`
	Completed []claim.State `json:"completed_states"`
	// ProgressPercent is derived from Completed; it is stored only so callers
	// can render it without recomputing.
	ProgressPercent int `json:"progress_percent"`

	Pending          PendingInput `json:"pending_input"`
	ValidationErrors []string     `json:"validation_errors,omitempty"`

	Status           Status `json:"status"`
	EscalationReason string `json:"escalation_reason,omitempty"`

	Payout *payout.Breakdown `json:"payout,omitempty"`

	Messages []Message     `json:"messages,omitempty"`
	Trail    []audit.Event `json:"state_history,omitempty"`

	// DisputedFields tracks fields reconciliation already sent back once. A
	// second dispute on the same field escalates instead of looping.
	DisputedFields []string `json:"disputed_fields,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the session can no longer be advanced.
func (s *Session) Terminal() bool {
	return s.Status != StatusActive
}

// IsComplete reports whether the claim was filed.
func (s *Session) IsComplete() bool {
	return s.Status == StatusSubmitted
}

func (s *Session) completedContains(st claim.State) bool {
	for _, c := range s.Completed {
		if c == st {
			return true
		}
	}
	return false
}

func (s *Session) markCompleted(st claim.State) {
	if !s.completedContains(st) {
		s.Completed = append(s.Completed, st)
	}
	s.ProgressPercent = claim.Progress(s.Completed, s.Draft.Product)
}

func (s *Session) say(content string, now time.Time) {
	s.Messages = append(s.Messages, Message{Role: RoleAssistant, Content: content, At: now})
}

func (s *Session) hear(content string, now time.Time) {
	s.Messages = append(s.Messages, Message{Role: RoleClaimant, Content: content, At: now})
}

// Clone deep-copies the session via its JSON form. Turns mutate a clone so a
// failed validation or a lost save never leaks partial state into the caller's
// copy.
func (s *Session) Clone() *Session {
	raw, err := json.Marshal(s)
	if err != nil {
		// The session graph is plain data; marshal cannot fail.
		panic(err)
	}
	var out Session
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

// SessionStore is the persistence contract for session snapshots.
//
// Save is compare-and-swap on Session.Version: the store must reject the
// write with ErrVersionConflict when the stored version no longer matches the
// one the snapshot was loaded at, and bump the version on success.
type SessionStore interface {
	Load(ctx context.Context, threadID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, threadID string) error
}

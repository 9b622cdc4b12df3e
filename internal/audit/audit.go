// Package audit records the per-session trail of field changes and state
// transitions. The trail travels with the session snapshot; durable storage
// of audit records is the platform's concern, not the core's.
package audit

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Actor values for audit events.
const (
	ActorClaimant = "claimant"
	ActorSystem   = "system"
	ActorEvidence = "evidence"
)

// Event is one entry in a session's audit trail.
type Event struct {
	At     time.Time `json:"at"`
	State  string    `json:"state"`
	Action string    `json:"action"`
	Actor  string    `json:"actor"`
	Field  string    `json:"field,omitempty"`
	Before string    `json:"before,omitempty"`
	After  string    `json:"after,omitempty"`
}

// Record appends an event to the trail and mirrors it to the structured log.
func Record(trail []Event, threadID string, e Event) []Event {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	log.Debug().
		Str("thread_id", threadID).
		Str("state", e.State).
		Str("action", e.Action).
		Str("actor", e.Actor).
		Str("field", e.Field).
		Msg("audit event")
	return append(trail, e)
}

package fnol

import "errors"

// Error taxonomy for session operations. Validation failures are not errors:
// they come back as field-level messages on the turn result and the
// conversation continues.
var (
	// ErrSessionNotFound means no session exists for the thread ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy means another advance is in flight for the same thread.
	// Callers should retry after a short backoff.
	ErrSessionBusy = errors.New("session busy")

	// ErrSessionTerminated means the session reached a terminal status and
	// can no longer be advanced.
	ErrSessionTerminated = errors.New("session terminated")

	// ErrVersionConflict means a save lost a compare-and-swap race. The
	// mutation was not committed.
	ErrVersionConflict = errors.New("session version conflict")

	// ErrSystemUnavailable means an external dependency kept failing after
	// bounded retries. No session state was committed; the turn is safely
	// retriable.
	ErrSystemUnavailable = errors.New("system unavailable")
)

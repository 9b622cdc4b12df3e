// Package session provides the fnol.SessionStore implementations: an
// in-memory store for tests and single-node use, and a Redis store for
// production. Both enforce compare-and-swap on the session version.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/claimflow/internal/fnol"
)

// DefaultTTL is how long an idle session survives before it expires.
const DefaultTTL = 24 * time.Hour

type memoryEntry struct {
	s       *fnol.Session
	expires time.Time
}

// Memory is a TTL-evicting in-memory session store.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemory builds an in-memory store. ttl <= 0 uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Load(ctx context.Context, threadID string) (*fnol.Session, error) {
	m.mu.RLock()
	e, ok := m.items[threadID]
	m.mu.RUnlock()
	if !ok || m.now().After(e.expires) {
		return nil, fmt.Errorf("%w: thread %s", fnol.ErrSessionNotFound, threadID)
	}
	return e.s.Clone(), nil
}

// Save commits the snapshot if its version still matches the stored one, then
// bumps the version on both the stored copy and the caller's snapshot.
func (m *Memory) Save(ctx context.Context, s *fnol.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.items[s.ThreadID]; ok && !m.now().After(cur.expires) {
		if cur.s.Version != s.Version {
			return fmt.Errorf("%w: thread %s at version %d, snapshot at %d",
				fnol.ErrVersionConflict, s.ThreadID, cur.s.Version, s.Version)
		}
	} else if s.Version != 0 {
		return fmt.Errorf("%w: thread %s expired under a live snapshot",
			fnol.ErrVersionConflict, s.ThreadID)
	}

	s.Version++
	m.items[s.ThreadID] = memoryEntry{s: s.Clone(), expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Delete(ctx context.Context, threadID string) error {
	m.mu.Lock()
	delete(m.items, threadID)
	m.mu.Unlock()
	return nil
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimflow/internal/claim"
	"github.com/claimflow/internal/fnol"
)

func newSession(threadID string) *fnol.Session {
	return &fnol.Session{
		ThreadID: threadID,
		Current:  claim.StateSafetyCheck,
		Status:   fnol.StatusActive,
		Draft:    claim.Draft{ID: "draft-" + threadID},
	}
}

func TestMemoryLoadMissing(t *testing.T) {
	store := NewMemory(0)
	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, fnol.ErrSessionNotFound)
}

func TestMemorySaveBumpsVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(0)

	s := newSession("t1")
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, int64(1), s.Version)

	loaded, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Version)

	require.NoError(t, store.Save(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version)
}

func TestMemorySaveDetectsVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(0)

	s := newSession("t1")
	require.NoError(t, store.Save(ctx, s))

	a, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	b, err := store.Load(ctx, "t1")
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, a))
	err = store.Save(ctx, b)
	assert.ErrorIs(t, err, fnol.ErrVersionConflict)
}

func TestMemoryLoadReturnsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(0)
	require.NoError(t, store.Save(ctx, newSession("t1")))

	a, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	a.Status = fnol.StatusAbandoned

	b, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, fnol.StatusActive, b.Status, "mutating a loaded copy must not touch the stored one")
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(time.Minute)
	require.NoError(t, store.Save(ctx, newSession("t1")))

	now := time.Now().UTC()
	store.now = func() time.Time { return now.Add(2 * time.Minute) }

	_, err := store.Load(ctx, "t1")
	assert.ErrorIs(t, err, fnol.ErrSessionNotFound)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(0)
	require.NoError(t, store.Save(ctx, newSession("t1")))
	require.NoError(t, store.Delete(ctx, "t1"))

	_, err := store.Load(ctx, "t1")
	assert.ErrorIs(t, err, fnol.ErrSessionNotFound)
}

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/claimflow/internal/fnol"
)

// Redis stores session snapshots as JSON blobs with a companion version
// counter. Both keys share a hash tag so the compare-and-swap script stays on
// one cluster slot.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis builds a Redis-backed store. ttl <= 0 uses DefaultTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func dataKey(threadID string) string    { return fmt.Sprintf("claimflow:session:{%s}", threadID) }
func versionKey(threadID string) string { return fmt.Sprintf("claimflow:session:{%s}:v", threadID) }

// saveScript commits the snapshot only when the stored version counter still
// matches the version the snapshot was loaded at. Returns the new version, or
// 0 on a conflict.
var saveScript = redis.NewScript(`
local v = tonumber(redis.call('GET', KEYS[2]) or '0')
if v ~= tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], v + 1, 'PX', ARGV[3])
return v + 1
`)

func (r *Redis) Load(ctx context.Context, threadID string) (*fnol.Session, error) {
	raw, err := r.client.Get(ctx, dataKey(threadID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: thread %s", fnol.ErrSessionNotFound, threadID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", threadID, err)
	}
	var s fnol.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", threadID, err)
	}
	return &s, nil
}

func (r *Redis) Save(ctx context.Context, s *fnol.Session) error {
	loadedAt := s.Version
	s.Version = loadedAt + 1
	raw, err := json.Marshal(s)
	if err != nil {
		s.Version = loadedAt
		return fmt.Errorf("encode session %s: %w", s.ThreadID, err)
	}

	res, err := saveScript.Run(ctx, r.client,
		[]string{dataKey(s.ThreadID), versionKey(s.ThreadID)},
		raw, loadedAt, r.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		s.Version = loadedAt
		return fmt.Errorf("save session %s: %w", s.ThreadID, err)
	}
	if res == 0 {
		s.Version = loadedAt
		return fmt.Errorf("%w: thread %s snapshot at version %d",
			fnol.ErrVersionConflict, s.ThreadID, loadedAt)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, threadID string) error {
	if err := r.client.Del(ctx, dataKey(threadID), versionKey(threadID)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", threadID, err)
	}
	return nil
}

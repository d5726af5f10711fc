// Package presence tracks which users hold a live real-time connection.
package presence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store counts live connections per user. A user is online while at least one
// connection on any server instance is open. Implementations must be safe for
// concurrent use.
type Store interface {
	// Connect records one more connection for userID, active at at.
	Connect(ctx context.Context, userID string, at time.Time) error
	// Touch refreshes the last activity of an online user. Offline users are ignored.
	Touch(ctx context.Context, userID string, at time.Time) error
	// Disconnect releases one connection. The user goes offline with the last one.
	Disconnect(ctx context.Context, userID string) error
	// LastSeen reports the user's last activity, or ok=false if offline.
	LastSeen(ctx context.Context, userID string) (at time.Time, ok bool, err error)
}

type memoryEntry struct {
	conns int
	at    time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.RWMutex
	online map[string]*memoryEntry
}

// NewMemoryStore creates an empty in-memory presence store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{online: make(map[string]*memoryEntry)}
}

// Connect records one more connection for userID.
func (s *MemoryStore) Connect(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.online[userID]
	if !ok {
		e = &memoryEntry{}
		s.online[userID] = e
	}
	e.conns++
	e.at = at.UTC()
	return nil
}

// Touch refreshes the last activity of an online user.
func (s *MemoryStore) Touch(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.online[userID]; ok {
		e.at = at.UTC()
	}
	return nil
}

// Disconnect releases one connection of userID.
func (s *MemoryStore) Disconnect(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.online[userID]
	if !ok {
		return nil
	}
	if e.conns--; e.conns <= 0 {
		delete(s.online, userID)
	}
	return nil
}

// LastSeen returns the last activity of userID while it is online.
func (s *MemoryStore) LastSeen(_ context.Context, userID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.online[userID]
	if !ok {
		return time.Time{}, false, nil
	}
	return e.at, true, nil
}

// DefaultRedisKey is the hash holding userID -> unix seconds of last activity.
// Connection counts live in the hash DefaultRedisKey + ":conns".
const DefaultRedisKey = "presence:online"

// KEYS[1] last-seen hash, KEYS[2] connection counts; ARGV[1] user, ARGV[2] unix seconds.
var touchScript = redis.NewScript(`
if redis.call("HEXISTS", KEYS[2], ARGV[1]) == 1 then
	redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// KEYS[1] last-seen hash, KEYS[2] connection counts; ARGV[1] user.
var disconnectScript = redis.NewScript(`
if redis.call("HEXISTS", KEYS[2], ARGV[1]) == 0 then
	return 0
end
local n = redis.call("HINCRBY", KEYS[2], ARGV[1], -1)
if n <= 0 then
	redis.call("HDEL", KEYS[2], ARGV[1])
	redis.call("HDEL", KEYS[1], ARGV[1])
	return 0
end
return n
`)

// RedisStore shares presence across server instances through two Redis
// hashes: last activity and open connection count per user.
type RedisStore struct {
	client   *redis.Client
	key      string
	countKey string
}

// NewRedisStore creates a presence store on client. An empty key uses DefaultRedisKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, countKey: key + ":conns"}
}

// Connect increments the user's connection count and records activity.
func (s *RedisStore) Connect(ctx context.Context, userID string, at time.Time) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, s.countKey, userID, 1)
		pipe.HSet(ctx, s.key, userID, at.Unix())
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence connect %s: %w", userID, err)
	}
	return nil
}

// Touch records activity for a user that still holds a connection.
func (s *RedisStore) Touch(ctx context.Context, userID string, at time.Time) error {
	err := touchScript.Run(ctx, s.client, []string{s.key, s.countKey}, userID, at.Unix()).Err()
	if err != nil {
		return fmt.Errorf("presence touch %s: %w", userID, err)
	}
	return nil
}

// Disconnect decrements the user's connection count and clears presence
// when it reaches zero.
func (s *RedisStore) Disconnect(ctx context.Context, userID string) error {
	err := disconnectScript.Run(ctx, s.client, []string{s.key, s.countKey}, userID).Err()
	if err != nil {
		return fmt.Errorf("presence disconnect %s: %w", userID, err)
	}
	return nil
}

// LastSeen returns the last activity of userID while it is online.
func (s *RedisStore) LastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	raw, err := s.client.HGet(ctx, s.key, userID).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("presence lookup %s: %w", userID, err)
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("presence lookup %s: %w", userID, err)
	}
	return time.Unix(sec, 0).UTC(), true, nil
}

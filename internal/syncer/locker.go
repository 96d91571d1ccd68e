package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker guards the per-connection single-flight rule: at most one sync per
// connection at a time. TryLock reports false when a sync already holds the
// lock; it never blocks.
type Locker interface {
	TryLock(ctx context.Context, connectionID uuid.UUID) (bool, error)
	Unlock(ctx context.Context, connectionID uuid.UUID)
}

// MemoryLocker is the single-process implementation: a mutex-guarded set of
// in-flight connection IDs.
type MemoryLocker struct {
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// NewMemoryLocker creates a new in-memory locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{inFlight: make(map[uuid.UUID]struct{})}
}

func (l *MemoryLocker) TryLock(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.inFlight[connectionID]; held {
		return false, nil
	}
	l.inFlight[connectionID] = struct{}{}
	return true, nil
}

func (l *MemoryLocker) Unlock(ctx context.Context, connectionID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, connectionID)
}

// RedisLocker is the multi-instance implementation: SET NX with a TTL, so a
// crashed instance cannot hold a connection locked forever. The TTL must
// exceed the longest expected sync; a sync outliving it risks a concurrent
// run, which is why the TTL is configurable.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a Redis-backed locker with the given stale-lock TTL
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) key(connectionID uuid.UUID) string {
	return "sync:lock:" + connectionID.String()
}

func (l *RedisLocker) TryLock(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	return l.client.SetNX(ctx, l.key(connectionID), "1", l.ttl).Result()
}

func (l *RedisLocker) Unlock(ctx context.Context, connectionID uuid.UUID) {
	// Best effort; the TTL reclaims the lock if this fails
	l.client.Del(ctx, l.key(connectionID))
}

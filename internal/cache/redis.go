package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when a lock could not be taken within LockWait
var ErrLockBusy = errors.New("lock is held by another worker")

// New creates a redis client and checks that it answers
func New(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// unlockScript deletes the lock only when it still carries our token, so an
// expired lock taken over by another worker is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisGuard deduplicates events and serializes sessions across processes
type RedisGuard struct {
	client *redis.Client
	scope  string
}

// NewRedisGuard creates a guard whose dedup keys live under scope
func NewRedisGuard(client *redis.Client, scope string) *RedisGuard {
	return &RedisGuard{client: client, scope: scope}
}

// MarkSeen records an event id and reports whether this is the first sighting
func (g *RedisGuard) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, fmt.Sprintf(KeyDedup, g.scope, eventID), "1", TTLDedup).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record event %s: %w", eventID, err)
	}
	return ok, nil
}

// Seen reports whether an event id was recorded, without recording it
func (g *RedisGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := g.client.Exists(ctx, fmt.Sprintf(KeyDedup, g.scope, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up event %s: %w", eventID, err)
	}
	return n == 1, nil
}

// Lock takes the session lock, waiting up to LockWait for a busy holder.
// The returned func releases it.
func (g *RedisGuard) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := fmt.Sprintf(KeySessionLock, sessionID)
	token := uuid.NewString()

	deadline := time.Now().Add(LockWait)
	for {
		ok, err := g.client.SetNX(ctx, key, token, TTLLock).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to take session lock: %w", err)
		}
		if ok {
			return func() {
				// release must work even when the request context is gone
				_ = unlockScript.Run(context.WithoutCancel(ctx), g.client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockInterval):
		}
	}
}

package cache

import (
	"context"
	"sync"
	"time"
)

// LocalGuard is the single-process stand-in for RedisGuard
type LocalGuard struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	locks map[string]chan struct{}
	now   func() time.Time
}

// NewLocalGuard creates an in-memory guard
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{
		seen:  make(map[string]time.Time),
		locks: make(map[string]chan struct{}),
		now:   time.Now,
	}
}

// MarkSeen records an event id and reports whether this is the first sighting
func (g *LocalGuard) MarkSeen(_ context.Context, eventID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if at, ok := g.seen[eventID]; ok && now.Sub(at) < TTLDedup {
		return false, nil
	}
	g.seen[eventID] = now

	// sweep expired entries
	for id, at := range g.seen {
		if now.Sub(at) >= TTLDedup {
			delete(g.seen, id)
		}
	}
	return true, nil
}

// Seen reports whether an event id was recorded, without recording it
func (g *LocalGuard) Seen(_ context.Context, eventID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	at, ok := g.seen[eventID]
	return ok && g.now().Sub(at) < TTLDedup, nil
}

// Lock serializes work on one session inside this process
func (g *LocalGuard) Lock(ctx context.Context, sessionID string) (func(), error) {
	timer := time.NewTimer(LockWait)
	defer timer.Stop()

	for {
		g.mu.Lock()
		held, busy := g.locks[sessionID]
		if !busy {
			done := make(chan struct{})
			g.locks[sessionID] = done
			g.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					g.mu.Lock()
					delete(g.locks, sessionID)
					g.mu.Unlock()
					close(done)
				})
			}, nil
		}
		g.mu.Unlock()

		select {
		case <-held:
		case <-timer.C:
			return nil, ErrLockBusy
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestNew_PingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	rdb.Close()

	mr.Close()
	_, err = New(context.Background(), mr.Addr(), "", 0)
	assert.Error(t, err)
}

func TestRedisGuard_MarkSeen(t *testing.T) {
	mr, rdb := setupRedis(t)
	guard := NewRedisGuard(rdb, "webhook")
	ctx := context.Background()

	first, err := guard.MarkSeen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := guard.MarkSeen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, again)

	assert.True(t, mr.Exists("dedup:webhook:evt_1"))
	assert.Equal(t, TTLDedup, mr.TTL("dedup:webhook:evt_1"))

	seen, err := guard.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	unknown, err := guard.Seen(ctx, "evt_2")
	require.NoError(t, err)
	assert.False(t, unknown)
	assert.False(t, mr.Exists("dedup:webhook:evt_2"), "Seen must not record")
}

func TestRedisGuard_MarkSeen_Expires(t *testing.T) {
	mr, rdb := setupRedis(t)
	guard := NewRedisGuard(rdb, "webhook")
	ctx := context.Background()

	_, err := guard.MarkSeen(ctx, "evt_1")
	require.NoError(t, err)

	mr.FastForward(TTLDedup + time.Second)

	seenAgain, err := guard.MarkSeen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seenAgain)
}

func TestRedisGuard_Lock(t *testing.T) {
	mr, rdb := setupRedis(t)
	guard := NewRedisGuard(rdb, "webhook")
	ctx := context.Background()

	unlock, err := guard.Lock(ctx, "cs_1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:session:cs_1"))

	// a competing holder gives up once its context ends
	waitCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = guard.Lock(waitCtx, "cs_1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.False(t, mr.Exists("lock:session:cs_1"))

	unlock2, err := guard.Lock(ctx, "cs_1")
	require.NoError(t, err)
	unlock2()
}

func TestRedisGuard_UnlockKeepsForeignLock(t *testing.T) {
	mr, rdb := setupRedis(t)
	guard := NewRedisGuard(rdb, "webhook")

	unlock, err := guard.Lock(context.Background(), "cs_1")
	require.NoError(t, err)

	// our lock expired and another worker took it over
	mr.FastForward(TTLLock + time.Second)
	require.NoError(t, mr.Set("lock:session:cs_1", "other-token"))

	unlock()
	got, err := mr.Get("lock:session:cs_1")
	require.NoError(t, err)
	assert.Equal(t, "other-token", got)
}

func TestLocalGuard_MarkSeen(t *testing.T) {
	guard := NewLocalGuard()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return now }
	ctx := context.Background()

	before, _ := guard.Seen(ctx, "evt_1")
	assert.False(t, before)

	first, _ := guard.MarkSeen(ctx, "evt_1")
	again, _ := guard.MarkSeen(ctx, "evt_1")
	assert.True(t, first)
	assert.False(t, again)

	seen, _ := guard.Seen(ctx, "evt_1")
	assert.True(t, seen)

	now = now.Add(TTLDedup)
	stale, _ := guard.Seen(ctx, "evt_1")
	assert.False(t, stale)
	expired, _ := guard.MarkSeen(ctx, "evt_1")
	assert.True(t, expired)
}

func TestLocalGuard_LockSerializes(t *testing.T) {
	guard := NewLocalGuard()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := guard.Lock(ctx, "cs_1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestLocalGuard_LockHonoursContext(t *testing.T) {
	guard := NewLocalGuard()

	unlock, err := guard.Lock(context.Background(), "cs_1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = guard.Lock(ctx, "cs_1")
	assert.ErrorIs(t, err, context.Canceled)

	// other sessions are independent
	unlockOther, err := guard.Lock(context.Background(), "cs_2")
	require.NoError(t, err)
	unlockOther()
}

package keylock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseMutualExclusion(t *testing.T, l Locker) {
	t.Helper()
	var (
		wg      sync.WaitGroup
		holders int32
		maxSeen int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "order:1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&holders, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&holders, -1)
			assert.NoError(t, unlock())
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxSeen)
}

func TestKeyedMutualExclusion(t *testing.T) {
	l := NewKeyed()
	exerciseMutualExclusion(t, l)
	assert.Zero(t, l.active())
}

func TestKeyedIndependentKeys(t *testing.T) {
	l := NewKeyed()
	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, unlockB())
}

func TestKeyedHonoursContext(t *testing.T) {
	l := NewKeyed()
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock())
	require.NoError(t, unlock(), "second unlock is a no-op")
	assert.Zero(t, l.active())
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisMutualExclusion(t *testing.T) {
	_, client := newRedis(t)
	exerciseMutualExclusion(t, NewRedis(client, WithRetryInterval(time.Millisecond)))
}

func TestRedisLockSetsTTLAndReleases(t *testing.T) {
	mr, client := newRedis(t)
	l := NewRedis(client, WithTTL(5*time.Second), WithPrefix("test:"))

	unlock, err := l.Lock(context.Background(), "order:9")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:order:9"))
	assert.Equal(t, 5*time.Second, mr.TTL("test:order:9"))

	require.NoError(t, unlock())
	assert.False(t, mr.Exists("test:order:9"))
}

func TestRedisLockHonoursContext(t *testing.T) {
	_, client := newRedis(t)
	l := NewRedis(client, WithRetryInterval(5*time.Millisecond))

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisExpiredLockIsNotStolen(t *testing.T) {
	mr, client := newRedis(t)
	l := NewRedis(client, WithTTL(time.Second))

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	unlockOther, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	require.ErrorIs(t, unlock(), ErrLockLost)
	assert.True(t, mr.Exists("lock:k"), "the new holder keeps its lock")
	require.NoError(t, unlockOther())
}

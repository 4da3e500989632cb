package lock_test

import (
	"context"
	"testing"
	"time"

	"bookswap/internal/infrastructure/lock"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, maxRetries int) (*lock.RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.NewRedisLocker(client, 5*time.Second, 10*time.Millisecond, maxRetries), mr
}

func TestRedisLockerAcquireRelease(t *testing.T) {
	locker, mr := newRedisLocker(t, 3)
	key := lock.WalletKey(7)

	release, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 5*time.Second, mr.TTL(key))

	_, err = locker.Acquire(context.Background(), key)
	assert.ErrorIs(t, err, lock.ErrLockFailed)

	release()
	assert.False(t, mr.Exists(key))

	release, err = locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	release()
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	locker, mr := newRedisLocker(t, 3)
	key := lock.WalletKey(8)

	release, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)

	// 锁过期后被其他实例拿到
	mr.FastForward(6 * time.Second)
	require.NoError(t, mr.Set(key, "other-holder"))

	release()
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "other-holder", got)
}

func TestRedisLockerWaitsUntilContextDone(t *testing.T) {
	locker, _ := newRedisLocker(t, 1000)
	key := lock.WalletKey(9)

	release, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRedisLockerAcquiresAfterHolderReleases(t *testing.T) {
	locker, _ := newRedisLocker(t, 1000)
	key := lock.WalletKey(10)

	release, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)

	acquired := make(chan error, 1)
	go func() {
		r, err := locker.Acquire(context.Background(), key)
		if err == nil {
			r()
		}
		acquired <- err
	}()

	time.Sleep(30 * time.Millisecond)
	release()

	select {
	case err := <-acquired:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

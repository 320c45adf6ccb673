package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLocker(client, 5*time.Second), mr
}

func TestWithLockRunsAndReleases(t *testing.T) {
	locker, mr := newTestLocker(t)
	key := SpecialistLockKey(uuid.New())

	ran := false
	err := locker.WithLock(context.Background(), key, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(key), "lock key should be held inside the critical section")
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(key), "lock key should be released afterwards")
}

func TestWithLockContention(t *testing.T) {
	locker, _ := newTestLocker(t)
	key := SpecialistLockKey(uuid.New())

	err := locker.WithLock(context.Background(), key, func(ctx context.Context) error {
		// Second acquisition of the same key must fail while held.
		inner := locker.WithLock(ctx, key, func(ctx context.Context) error {
			t.Fatal("critical section entered twice")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)

	// Released now, so a fresh acquisition succeeds.
	err = locker.WithLock(context.Background(), key, func(ctx context.Context) error { return nil })
	require.NoError(t, err)
}

func TestWithLockPropagatesCallbackError(t *testing.T) {
	locker, mr := newTestLocker(t)
	key := SpecialistLockKey(uuid.New())

	want := assert.AnError
	err := locker.WithLock(context.Background(), key, func(ctx context.Context) error {
		return want
	})

	assert.ErrorIs(t, err, want)
	assert.False(t, mr.Exists(key), "lock released even when the callback fails")
}

func TestReleaseIgnoresForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t)
	key := SpecialistLockKey(uuid.New())

	err := locker.WithLock(context.Background(), key, func(ctx context.Context) error {
		// Simulate the lock expiring and another owner taking it over.
		mr.Del(key)
		require.NoError(t, mr.Set(key, "someone-else"))
		return nil
	})

	require.NoError(t, err)
	val, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val, "foreign lock must not be deleted on release")
}

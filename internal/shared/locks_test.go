package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*OwnerLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewOwnerLocker(client, time.Minute), mr
}

func TestOwnerLockerAcquireRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "owner-1")
	require.NoError(t, err)
	require.True(t, mr.Exists(OwnerLockKey("owner-1")))

	_, err = locker.Acquire(ctx, "owner-1")
	require.ErrorIs(t, err, ErrLockHeld)

	// A different owner is unaffected.
	otherRelease, err := locker.Acquire(ctx, "owner-2")
	require.NoError(t, err)
	require.NoError(t, otherRelease(ctx))

	require.NoError(t, release(ctx))
	require.False(t, mr.Exists(OwnerLockKey("owner-1")))

	_, err = locker.Acquire(ctx, "owner-1")
	require.NoError(t, err)
}

func TestOwnerLockerReleaseAfterExpiryIsSafe(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "owner-1")
	require.NoError(t, err)

	// Lease expires and another run takes the lock.
	mr.FastForward(2 * time.Minute)
	_, err = locker.Acquire(ctx, "owner-1")
	require.NoError(t, err)

	// The stale release must not delete the new holder's lock.
	require.NoError(t, release(ctx))
	require.True(t, mr.Exists(OwnerLockKey("owner-1")))
}

func TestOwnerLockerRequiresOwner(t *testing.T) {
	locker, _ := newTestLocker(t)
	_, err := locker.Acquire(context.Background(), "")
	require.ErrorIs(t, err, ErrOwnerRequired)
}

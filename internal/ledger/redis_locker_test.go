package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/tablestore"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLockerAcquireRelease(t *testing.T) {
	client := newRedisClient(t)
	locker := NewRedisLocker(client, "test:lock", time.Second)
	ctx := context.Background()

	release, err := locker.Acquire(ctx)
	require.NoError(t, err)
	release()

	// Released lock can be reacquired.
	release, err = locker.Acquire(ctx)
	require.NoError(t, err)
	release()
}

func TestRedisLockerTimesOutWhileHeld(t *testing.T) {
	client := newRedisClient(t)
	holder := NewRedisLocker(client, "test:lock", time.Second)
	waiter := NewRedisLocker(client, "test:lock", 200*time.Millisecond)
	ctx := context.Background()

	release, err := holder.Acquire(ctx)
	require.NoError(t, err)
	defer release()

	_, err = waiter.Acquire(ctx)
	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestLedgerOverRedisLocker(t *testing.T) {
	client := newRedisClient(t)
	store := tablestore.NewMemory(countersTable)
	ledger := New(store, countersTable, NewRedisLocker(client, "counters:lock", time.Second))
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := ledger.Allocate(ctx, "PO:SiteB:202404")
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLeaseWithRedis(t *testing.T, ttl time.Duration) (*LeaseRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLeaseRepository(client, ttl, nil), srv
}

func TestLeaseIsExclusiveUntilReleased(t *testing.T) {
	lease, _ := newLeaseWithRedis(t, time.Minute)
	ctx := context.Background()

	ok, release, err := lease.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	other, _, err := lease.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, other, "second replica must not get the lease")

	release()
	release()

	again, releaseAgain, err := lease.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, again)
	releaseAgain()
}

func TestLeaseIsRefreshedWhileHeld(t *testing.T) {
	lease, srv := newLeaseWithRedis(t, 300*time.Millisecond)

	ok, release, err := lease.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	// age the key past most of its TTL; the keep-alive must push it back up
	srv.FastForward(250 * time.Millisecond)
	require.True(t, srv.Exists(tickLeaseKey))
	require.Eventually(t, func() bool {
		return srv.TTL(tickLeaseKey) > 200*time.Millisecond
	}, 2*time.Second, 20*time.Millisecond)
}

func TestLeaseReleaseKeepsForeignToken(t *testing.T) {
	lease, srv := newLeaseWithRedis(t, time.Minute)

	ok, release, err := lease.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// the lease expired and another replica took it
	require.NoError(t, srv.Set(tickLeaseKey, "someone-else"))
	release()

	value, err := srv.Get(tickLeaseKey)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}

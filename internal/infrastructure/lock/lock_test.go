package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLocalExcludesSecondHolder(t *testing.T) {
	t.Parallel()

	l := NewLocal()
	release, ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release()

	release, ok, _ = l.Acquire(context.Background())
	require.True(t, ok)
	release()
}

func TestRedisLockExcludesOtherProcesses(t *testing.T) {
	t.Parallel()

	mr, client := newMiniredis(t)
	first := NewRedis(client, "run", time.Minute, nil)
	second := NewRedis(client, "run", time.Minute, nil)

	release, ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("run"))

	_, ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists("run"))

	release, ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}

func TestRedisReleaseLeavesForeignToken(t *testing.T) {
	t.Parallel()

	mr, client := newMiniredis(t)
	l := NewRedis(client, "run", time.Second, nil)

	release, ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// lock expired and someone else took it
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("run", "someone-else"))

	release()
	got, err := mr.Get("run")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLockOutlivesTTLWhileHeld(t *testing.T) {
	t.Parallel()

	const ttl = 150 * time.Millisecond
	mr, client := newMiniredis(t)
	l := NewRedis(client, "run", ttl, nil)

	release, ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(100 * time.Millisecond)
	require.Eventually(t, func() bool { return mr.TTL("run") > 100*time.Millisecond },
		2*time.Second, 10*time.Millisecond, "holder refreshes the key")

	mr.FastForward(100 * time.Millisecond)
	assert.True(t, mr.Exists("run"), "key outlived its original ttl")

	_, ok, err = NewRedis(client, "run", ttl, nil).Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release()
	assert.False(t, mr.Exists("run"))
}

func TestRedisAcquireError(t *testing.T) {
	t.Parallel()

	mr, client := newMiniredis(t)
	mr.SetError("LOADING")

	_, ok, err := NewRedis(client, "run", time.Minute, nil).Acquire(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
}

type failingLock struct{}

func (failingLock) Acquire(context.Context) (func(), bool, error) {
	return nil, false, errors.New("down")
}

func TestChainReleasesEarlierLocksOnFailure(t *testing.T) {
	t.Parallel()

	local := NewLocal()
	chain := Chain{local, failingLock{}}

	_, ok, err := chain.Acquire(context.Background())
	require.Error(t, err)
	assert.False(t, ok)

	_, ok, err = local.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "local guard must be released after chain failure")
}
